// Package engine 实现矩阵分解模型上的两条推荐路径：已知用户与冷启动用户。
//
// 每个请求按需组装一条 Pipeline：
//
//	已知用户：recall.mf -> filter(seen, popularity) -> 扩展节点 -> rerank.sort(score) -> rerank.topn
//	冷启动：  recall.mf(伪用户) -> filter(liked, popularity) -> 扩展节点 -> rerank.sort(score) -> rerank.policy
//	热度兜底：recall.hot -> filter(popularity) -> 扩展节点 -> rerank.sort(popularity) -> rerank.policy
//
// Engine 持有的模型与评分表加载后只读，可被并发请求共享。
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/metrics"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
)

// DefaultFallbackRating 热度兜底结果的占位预测分
const DefaultFallbackRating = 4.0

// Recommendation 是引擎输出的一行推荐。
type Recommendation struct {
	ItemID          int64   `json:"item_id"`
	Title           string  `json:"title"`
	PredictedRating float64 `json:"predicted_rating"`
	PopularityCount int     `json:"popularity_count"`
}

// KnownUserRequest 已知用户推荐请求
type KnownUserRequest struct {
	UserID        int64
	K             int
	MinPopularity int
	ExcludeSeen   bool
}

// NewUserRequest 冷启动推荐请求，LikedItemIDs 为内部物品 id
type NewUserRequest struct {
	LikedItemIDs  []int64
	K             int
	MinPopularity int
	Policy        rerank.Policy
}

// Engine 推荐引擎
type Engine struct {
	model   *model.SVDModel
	ratings *dataset.RatingTable

	extra          []pipeline.Node
	hotStore       core.Store
	hotKey         string
	fallbackRating float64
	rand           *rand.Rand
	logger         zerolog.Logger
}

// Option 配置 Engine
type Option func(*Engine)

// WithExtraNodes 追加在内置过滤之后、排序之前执行的节点，例如 CEL 表达式过滤。
func WithExtraNodes(nodes ...pipeline.Node) Option {
	return func(e *Engine) { e.extra = append(e.extra, nodes...) }
}

// WithLeaderboard 让热度兜底从 Store 中的热度榜读取候选。
func WithLeaderboard(st core.Store, key string) Option {
	return func(e *Engine) {
		e.hotStore = st
		e.hotKey = key
	}
}

// WithFallbackRating 设置热度兜底的占位预测分（会被裁剪到评分区间）。
func WithFallbackRating(rating float64) Option {
	return func(e *Engine) { e.fallbackRating = rating }
}

// WithRand 注入随机源，仅用于测试；默认使用不设种子的全局随机源。
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New 创建引擎。ratings 提供热度与已看集合，通常是训练时使用的同一份评分表。
func New(m *model.SVDModel, ratings *dataset.RatingTable, opts ...Option) (*Engine, error) {
	if m == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: nil model")
	}
	if ratings == nil {
		ratings = dataset.NewRatingTable(nil)
	}
	e := &Engine{
		model:          m,
		ratings:        ratings,
		fallbackRating: DefaultFallbackRating,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Model 返回引擎使用的模型
func (e *Engine) Model() *model.SVDModel { return e.model }

// Ratings 返回引擎使用的评分表
func (e *Engine) Ratings() *dataset.RatingTable { return e.ratings }

// PublishLeaderboard 把全部物品的热度写入 WithLeaderboard 指定的 Store。
func (e *Engine) PublishLeaderboard(ctx context.Context) error {
	if e.hotStore == nil {
		return nil
	}
	return recall.PublishHot(ctx, e.hotStore, e.hotKey, e.model.Items.IDs(), e.ratings)
}

// RecommendForKnownUser 为有评分历史的用户推荐。用户没有训练编码时返回 UNKNOWN_ENTITY。
func (e *Engine) RecommendForKnownUser(ctx context.Context, req KnownUserRequest) ([]Recommendation, error) {
	defer observe("known_user", time.Now())
	if req.K < 0 {
		return nil, invalidK(req.K)
	}
	vec, err := e.model.UserVector(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("recommend for user %d: %w", req.UserID, err)
	}

	rctx := &core.RecommendContext{
		UserID: req.UserID,
		Params: map[string]any{"k": req.K, "min_popularity": req.MinPopularity},
	}
	filters := []filter.Filter{&filter.PopularityFilter{Min: req.MinPopularity}}
	if req.ExcludeSeen {
		filters = append([]filter.Filter{&filter.SeenFilter{Seen: e.ratings}}, filters...)
	}

	p := (&pipeline.Pipeline{}).Append(
		&recall.MFRecall{
			Model:               e.model,
			Popularity:          e.ratings,
			UserVectorExtractor: fixedVector(vec),
		},
		e.filterNode(filters...),
	).Append(e.extra...).Append(
		&rerank.SortNode{By: rerank.SortByScore},
		&rerank.TopNNode{N: req.K},
	)

	items, err := e.run(ctx, metrics.PathKnownUser, p, rctx, req.K)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Int64("user_id", req.UserID).Int("k", req.K).Int("returned", len(items)).Msg("known user recommendation")
	return toRecommendations(items), nil
}

// RecommendForNewUser 冷启动推荐。
//
// 没有编码的喜欢物品被丢弃（记录日志与指标）；一个都解析不出时退化为热度兜底，不会因此报错。
func (e *Engine) RecommendForNewUser(ctx context.Context, req NewUserRequest) ([]Recommendation, error) {
	defer observe("new_user", time.Now())
	if req.K < 0 {
		return nil, invalidK(req.K)
	}

	indexes, unknown := e.resolveLiked(req.LikedItemIDs)
	if unknown > 0 {
		metrics.RecordDropped(metrics.ReasonUnknownItem, unknown)
		e.logger.Info().Int("unknown", unknown).Int("liked", len(req.LikedItemIDs)).Msg("dropped liked items without encoding")
	}
	if len(indexes) == 0 {
		return e.popularityFallback(ctx, req)
	}

	vec := e.model.PseudoUser(indexes)
	rctx := &core.RecommendContext{
		LikedItemIDs: req.LikedItemIDs,
		Params:       map[string]any{"k": req.K, "min_popularity": req.MinPopularity, "policy": req.Policy.String()},
	}
	p := (&pipeline.Pipeline{}).Append(
		&recall.MFRecall{
			Model:               e.model,
			Popularity:          e.ratings,
			UserVectorExtractor: fixedVector(vec),
		},
		e.filterNode(&filter.LikedFilter{}, &filter.PopularityFilter{Min: req.MinPopularity}),
	).Append(e.extra...).Append(
		&rerank.SortNode{By: rerank.SortByScore},
		&rerank.PolicyNode{Policy: req.Policy, K: req.K, Rand: e.rand},
	)

	items, err := e.run(ctx, metrics.PathColdStart, p, rctx, req.K)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Int("resolved", len(indexes)).Str("policy", req.Policy.String()).Int("returned", len(items)).Msg("cold start recommendation")
	return toRecommendations(items), nil
}

// popularityFallback 按热度推荐：确定性策略取热度前 k，随机策略在整个过滤后集合中均匀抽样。
func (e *Engine) popularityFallback(ctx context.Context, req NewUserRequest) ([]Recommendation, error) {
	policy := rerank.DeterministicPolicy()
	if req.Policy.Mode == rerank.RandomFromPool {
		policy = rerank.RandomFromPoolPolicy(0)
	}
	rctx := &core.RecommendContext{
		LikedItemIDs: req.LikedItemIDs,
		Params:       map[string]any{"k": req.K, "min_popularity": req.MinPopularity, "policy": policy.String()},
	}
	p := (&pipeline.Pipeline{}).Append(
		&recall.Hot{
			Store:      e.hotStore,
			Key:        e.hotKey,
			IDs:        e.model.Items.IDs(),
			Score:      e.model.Scale.Clip(e.fallbackRating),
			Popularity: e.ratings,
			Titles:     e.model.Movies,
		},
		e.filterNode(&filter.PopularityFilter{Min: req.MinPopularity}),
	).Append(e.extra...).Append(
		&rerank.SortNode{By: rerank.SortByPopularity},
		&rerank.PolicyNode{Policy: policy, K: req.K, Rand: e.rand},
	)

	items, err := e.run(ctx, metrics.PathPopularity, p, rctx, req.K)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("policy", policy.String()).Int("returned", len(items)).Msg("popularity fallback")
	return toRecommendations(items), nil
}

// resolveLiked 把喜欢的物品转成稠密下标，去重；返回无法编码的个数
func (e *Engine) resolveLiked(ids []int64) ([]int, int) {
	indexes := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	unknown := 0
	for _, id := range ids {
		idx, ok := e.model.Items.Encode(id)
		if !ok {
			unknown++
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}
	return indexes, unknown
}

func (e *Engine) filterNode(filters ...filter.Filter) *filter.FilterNode {
	n := filter.NewFilterNode(filters...)
	n.Logger = e.logger
	return n
}

func (e *Engine) run(ctx context.Context, path string, p *pipeline.Pipeline, rctx *core.RecommendContext, k int) ([]*core.Item, error) {
	metrics.Recommendations.WithLabelValues(path).Inc()
	if k == 0 {
		return []*core.Item{}, nil
	}
	rctx.PutLabel(core.LabelPath, utils.Label{Value: path, Source: "engine"})
	items, err := p.Observe(e.observeNode).Run(ctx, rctx, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return items, nil
}

func (e *Engine) observeNode(_ context.Context, s pipeline.NodeStat) {
	metrics.NodeDuration.WithLabelValues(string(s.Kind), s.Name).Observe(s.Duration.Seconds())
	e.logger.Debug().
		Str("node", s.Name).
		Int("in", s.In).
		Int("out", s.Out).
		Dur("took", s.Duration).
		Msg("node done")
}

func fixedVector(vec []float64) func(*core.RecommendContext) ([]float64, error) {
	return func(*core.RecommendContext) ([]float64, error) { return vec, nil }
}

func toRecommendations(items []*core.Item) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		out = append(out, Recommendation{
			ItemID:          it.ID,
			Title:           it.Title(),
			PredictedRating: it.Score,
			PopularityCount: it.Popularity(),
		})
	}
	return out
}

func invalidK(k int) error {
	return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, fmt.Sprintf("engine: k must be non-negative, got %d", k))
}

func observe(operation string, start time.Time) {
	metrics.RecommendDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
