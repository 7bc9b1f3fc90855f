package rerank

import (
	"context"
	"strconv"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// LabelRank 截断后保留物品的名次（从 1 开始）
const LabelRank = "rank"

// TopNNode 保留排序后的前 N 个物品并标注名次；N <= 0 时不截断。
// 放在 SortNode 之后使用。
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N > 0 && len(items) > n.N {
		items = items[:n.N]
	}
	for i, it := range items {
		it.PutLabel(LabelRank, utils.Label{Value: strconv.Itoa(i + 1), Source: n.Name()})
	}
	return items, nil
}
