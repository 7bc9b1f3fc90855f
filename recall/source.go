// Package recall 提供候选生成：基于隐向量的全量打分召回与热度召回。
package recall

import (
	"context"

	"github.com/rushteam/movierec/core"
)

// Source 表示一个可复用的召回源（MF / 热度 / ...）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// PopularityLookup 返回物品热度；dataset.RatingTable 实现了该接口。
type PopularityLookup interface {
	Popularity(itemID int64) int
}

// TitleLookup 返回物品片名；dataset.MovieCatalog 实现了该接口。
type TitleLookup interface {
	Title(itemID int64) string
}

// newItem 构建候选并写入热度与片名
func newItem(id int64, score float64, pop PopularityLookup, titles TitleLookup) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	if pop != nil {
		it.Features[core.FeaturePopularity] = float64(pop.Popularity(id))
	}
	if titles != nil {
		if title := titles.Title(id); title != "" {
			it.Meta[core.MetaTitle] = title
		}
	}
	return it
}
