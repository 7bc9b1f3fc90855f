// Package rerank 提供排序、截断与池内随机采样节点。
package rerank

import (
	"cmp"
	"context"
	"slices"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// SortBy 排序依据
type SortBy string

const (
	SortByScore      SortBy = "score"      // 预测分降序
	SortByPopularity SortBy = "popularity" // 热度降序
)

// SortNode 按 By 降序排序，同值按物品 id 升序，结果完全确定。
type SortNode struct {
	By SortBy
}

func (n *SortNode) Name() string {
	return "rerank.sort"
}

func (n *SortNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	key := func(it *core.Item) float64 { return it.Score }
	if n.By == SortByPopularity {
		key = func(it *core.Item) float64 { return float64(it.Popularity()) }
	}
	slices.SortStableFunc(items, func(a, b *core.Item) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}
