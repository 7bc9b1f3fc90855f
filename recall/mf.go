package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// MFRecall 是基于矩阵分解的召回源。
//
// 预测分数 = clip(用户隐向量 · 物品隐向量)，对模型中的全部物品打分，
// 截断交给下游的排序与重排节点，过滤节点因此能看到完整候选集。
//
// 用户向量来源：
//   - UserVectorExtractor 不为空时由它给出（冷启动伪用户向量）
//   - 否则按 rctx.UserID 查模型，未知用户返回 UNKNOWN_ENTITY
type MFRecall struct {
	Model      *model.SVDModel
	Popularity PopularityLookup

	// UserVectorExtractor 从 RecommendContext 提取用户隐向量（可选）
	UserVectorExtractor func(rctx *core.RecommendContext) ([]float64, error)
}

func (r *MFRecall) Name() string        { return "recall.mf" }
func (r *MFRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *MFRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *MFRecall) Recall(
	_ context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Model == nil {
		return nil, fmt.Errorf("recall.mf: nil model")
	}

	var (
		userVector []float64
		err        error
	)
	if r.UserVectorExtractor != nil {
		userVector, err = r.UserVectorExtractor(rctx)
	} else if rctx != nil {
		userVector, err = r.Model.UserVector(rctx.UserID)
	}
	if err != nil {
		return nil, err
	}
	if len(userVector) == 0 {
		return nil, nil
	}
	if len(userVector) != r.Model.Rank {
		return nil, fmt.Errorf("recall.mf: user vector dimension %d, model rank %d", len(userVector), r.Model.Rank)
	}

	scores := r.Model.ScoreAll(userVector)
	ids := r.Model.Items.IDs()
	out := make([]*core.Item, 0, len(scores))
	for idx, score := range scores {
		it := newItem(ids[idx], score, r.Popularity, r.Model.Movies)
		it.PutLabel("recall_source", utils.Label{Value: "mf", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
