// Package filter 提供候选过滤：已看/已喜欢排除、热度门槛与 CEL 表达式规则。
//
// 过滤是硬移除：被过滤的物品直接离开候选集，不会以 -inf 分数留在排序里。
package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// Filter 判断一个候选是否应被移除，true 表示移除。
// 返回 error 时 FilterNode 保留该物品并记录告警。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Func 把谓词包装成 Filter，适合一次性的业务规则。
type Func struct {
	FilterName string
	Remove     func(rctx *core.RecommendContext, item *core.Item) bool
}

func (f Func) Name() string { return f.FilterName }

func (f Func) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return f.Remove(rctx, item), nil
}
