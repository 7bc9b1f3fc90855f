// Package resolver 把符号化的偏好（类型、关键词）落到具体的“喜欢的物品”集合上，
// 是冷启动从文本偏好到物品向量空间的桥梁。
package resolver

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/metrics"
)

// DefaultSeed 抽样种子固定，同样的过滤条件总是得到同样的样本。
const DefaultSeed = 42

// Resolver 在外部目录上按类型/关键词过滤、抽样，再按片名对齐到内部片库。
// 构建后只读，可被并发调用。
type Resolver struct {
	catalog    *dataset.CatalogTable
	titleIndex map[string]int64
	seed       uint64
	logger     zerolog.Logger
}

// Option Resolver 配置选项
type Option func(*Resolver)

// WithSeed 覆盖抽样种子。
func WithSeed(seed uint64) Option {
	return func(r *Resolver) { r.seed = seed }
}

// WithLogger 设置 logger。
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New 构建 Resolver。内部片库按 NormalizeTitle 建索引，同名时以片库中第一条为准。
func New(catalog *dataset.CatalogTable, movies *dataset.MovieCatalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:    catalog,
		titleIndex: make(map[string]int64, movies.Len()),
		seed:       DefaultSeed,
		logger:     zerolog.Nop(),
	}
	for _, m := range movies.Movies() {
		key := NormalizeTitle(m.Title)
		if _, ok := r.titleIndex[key]; !ok {
			r.titleIndex[key] = m.ID
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveLikedItems 返回代表这些偏好的内部物品 id（去重，保持抽样顺序）。
//
//   - 过滤条件小写后做子串匹配，同一维度内任一命中即可
//   - 某一维度为空表示该维度不限
//   - 没有任何代表性物品时返回空切片（不是错误）
//   - 抽样使用固定种子，最多 sampleSize 个
//   - 片名对不上的样本静默丢弃，只记日志与指标
func (r *Resolver) ResolveLikedItems(ctx context.Context, genres, keywords []string, sampleSize int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	genreFilters := lowerAll(genres)
	keywordFilters := lowerAll(keywords)

	var candidates []dataset.CatalogEntry
	for _, e := range r.catalog.Entries() {
		if matchesAny(strings.ToLower(e.Genres), genreFilters) && matchesAny(strings.ToLower(e.Keywords), keywordFilters) {
			candidates = append(candidates, e)
		}
	}
	r.logger.Debug().Int("candidates", len(candidates)).Strs("genres", genreFilters).Strs("keywords", keywordFilters).Msg("filtered catalog")
	if len(candidates) == 0 || sampleSize <= 0 {
		return []int64{}, nil
	}

	sampled := sample(candidates, sampleSize, r.seed)

	liked := make([]int64, 0, len(sampled))
	seen := make(map[int64]struct{}, len(sampled))
	unmatched := 0
	for _, e := range sampled {
		id, ok := r.titleIndex[normalizeCatalogTitle(e.Title)]
		if !ok {
			unmatched++
			r.logger.Debug().Str("title", e.Title).Str("catalog_id", e.ID).Msg("title not found in rating catalog")
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		liked = append(liked, id)
	}

	metrics.RecordDropped(metrics.ReasonUnmatchedTitle, unmatched)
	if unmatched > 0 {
		r.logger.Info().Int("sampled", len(sampled)).Int("unmatched", unmatched).Msg("dropped unmatched titles")
	}
	return liked, nil
}

// sample 用固定种子做不放回抽样（部分 Fisher-Yates）
func sample[T any](items []T, n int, seed uint64) []T {
	if n >= len(items) {
		n = len(items)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out = append(out, items[idx[i]])
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// matchesAny 过滤条件为空时视为命中
func matchesAny(text string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.Contains(text, f) {
			return true
		}
	}
	return false
}
