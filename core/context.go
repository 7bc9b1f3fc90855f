package core

import "github.com/rushteam/movierec/pkg/utils"

// LabelPath 请求级标签：本次请求走的推荐路径（known_user / cold_start / popularity_fallback）
const LabelPath = "path"

// RecommendContext 承载单次请求的用户信号，贯穿整个 Pipeline 透传。
//
// 已知用户走 UserID；冷启动用户走 LikedItemIDs（内部 item id，已经过 Crosswalk 转换）。
// 扩展节点可以通过 Labels 与 Params 区分路径，例如只在冷启动路径上生效的规则。
type RecommendContext struct {
	UserID       int64
	LikedItemIDs []int64

	Labels map[string]utils.Label

	// Params 请求参数：k、min_popularity、policy
	Params map[string]any
}

// PutLabel 写入请求级 Label，同名按 MergeLabel 累积。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	rctx.Labels[key] = utils.MergeLabel(rctx.Labels[key], lbl)
}

// GetLabel 读取请求级 Label，nil 安全。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// Path 返回推荐路径，未设置时为空串。
func (rctx *RecommendContext) Path() string {
	lbl, _ := rctx.GetLabel(LabelPath)
	return lbl.Value
}

// Param 读取请求参数，不存在返回 nil。
func (rctx *RecommendContext) Param(key string) any {
	if rctx == nil {
		return nil
	}
	return rctx.Params[key]
}
