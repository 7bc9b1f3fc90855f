package semantic

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/metrics"
)

// 默认参数：每个查询取 3 个最相近的词项，相似度 ≥ 0.5 才保留。
const (
	DefaultTopK     = 3
	DefaultMinScore = 0.5
)

// Match 是一个词项及其与查询的余弦相似度，Score ∈ [-1, 1]。
type Match struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Matcher 在一个 Index 上做语义匹配，可被并发调用。
type Matcher struct {
	index    *Index
	encoder  core.Encoder
	cache    core.Store
	cacheTTL int
	topK     int
	minScore float64
	logger   zerolog.Logger
}

// MatcherOption Matcher 配置选项
type MatcherOption func(*Matcher)

// WithCache 缓存查询向量，ttl 单位秒，0 表示不过期。
func WithCache(store core.Store, ttl int) MatcherOption {
	return func(m *Matcher) {
		m.cache = store
		m.cacheTTL = ttl
	}
}

// WithTopK 设置 Match 使用的 k。
func WithTopK(k int) MatcherOption {
	return func(m *Matcher) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithMinScore 设置 Match 使用的阈值。
func WithMinScore(score float64) MatcherOption {
	return func(m *Matcher) {
		m.minScore = score
	}
}

// WithLogger 设置 logger。
func WithLogger(logger zerolog.Logger) MatcherOption {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// NewMatcher 创建 Matcher。index 与 encoder 必须是同一个模型产出的。
func NewMatcher(index *Index, encoder core.Encoder, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		index:    index,
		encoder:  encoder,
		topK:     DefaultTopK,
		minScore: DefaultMinScore,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TopKSimilar 返回与 query 最相似的 min(k, 词表大小) 个词项，按分数降序，同分按词表顺序。
// 编码服务失败时返回 UNAVAILABLE，而不是空结果。
func (m *Matcher) TopKSimilar(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 || m.index.Len() == 0 {
		return []Match{}, nil
	}

	qv, err := m.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(qv) != len(m.index.Vectors[0]) {
		return nil, core.NewDomainError(core.ModuleSemantic, core.ErrorCodeUnavailable,
			fmt.Sprintf("semantic: query dimension %d does not match index dimension %d", len(qv), len(m.index.Vectors[0])))
	}

	matches := make([]Match, m.index.Len())
	for i, v := range m.index.Vectors {
		matches[i] = Match{Term: m.index.Terms[i], Score: clampUnit(floats.Dot(qv, v))}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches[:min(k, len(matches))], nil
}

// Match 是 TopKSimilar + FilterByThreshold 的组合，使用 Matcher 的默认 k 与阈值。
func (m *Matcher) Match(ctx context.Context, query string) ([]string, error) {
	matches, err := m.TopKSimilar(ctx, query, m.topK)
	if err != nil {
		return nil, err
	}
	terms := FilterByThreshold(matches, m.minScore)
	m.logger.Debug().Str("query", query).Strs("terms", terms).Msg("semantic match")
	return terms, nil
}

// FilterByThreshold 保留 Score ≥ minScore 的词项，保持原有顺序。
func FilterByThreshold(matches []Match, minScore float64) []string {
	out := make([]string, 0, len(matches))
	for _, mt := range matches {
		if mt.Score >= minScore {
			out = append(out, mt.Term)
		}
	}
	return out
}

// embed 编码查询并归一化；有缓存时先查缓存，缓存读写失败只记日志。
func (m *Matcher) embed(ctx context.Context, query string) ([]float64, error) {
	key := "semantic:" + m.encoder.Name() + ":" + query
	if m.cache != nil {
		data, err := m.cache.Get(ctx, key)
		switch {
		case err == nil:
			var vec []float64
			if jerr := json.Unmarshal(data, &vec); jerr == nil && len(vec) > 0 {
				metrics.EmbeddingCache.WithLabelValues("hit").Inc()
				return vec, nil
			}
		case !core.IsStoreNotFound(err):
			m.logger.Warn().Err(err).Str("store", m.cache.Name()).Msg("query embedding cache read failed")
		}
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	}

	vecs, err := m.encoder.Encode(ctx, []string{query})
	if err != nil {
		if core.IsUnavailable(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", core.NewDomainError(core.ModuleSemantic, core.ErrorCodeUnavailable, "semantic: encode query"), err)
	}
	if len(vecs) != 1 {
		return nil, core.NewDomainError(core.ModuleSemantic, core.ErrorCodeUnavailable, "semantic: encoder returned no vector")
	}
	vec := normalize(vecs[0])

	if m.cache != nil {
		if data, err := json.Marshal(vec); err == nil {
			if err := m.cache.Set(ctx, key, data, m.cacheTTL); err != nil {
				m.logger.Warn().Err(err).Str("store", m.cache.Name()).Msg("query embedding cache write failed")
			}
		}
	}
	return vec, nil
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
