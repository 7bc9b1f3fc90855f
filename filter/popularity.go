package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// PopularityFilter 剔除热度（历史评分次数）低于 Min 的物品。
type PopularityFilter struct {
	Min int
}

func (f *PopularityFilter) Name() string {
	return "filter.popularity"
}

func (f *PopularityFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return item.Popularity() < f.Min, nil
}
