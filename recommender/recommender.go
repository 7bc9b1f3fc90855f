// Package recommender 是推荐的编排层：把外部 id 或文本偏好转换成引擎请求，
// 再用 id 映射与元数据表把结果补全成可展示的条目。
package recommender

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/metrics"
	"github.com/rushteam/movierec/rerank"
)

// Config 编排参数
type Config struct {
	// CandidateK 向引擎请求的候选数
	CandidateK int `koanf:"candidate_k" validate:"gt=0"`
	// PoolSize 随机采样池大小
	PoolSize int `koanf:"pool_size" validate:"gte=0"`
	// MinPopularity 热度门槛（历史评分次数）
	MinPopularity int `koanf:"min_popularity" validate:"gte=0"`
	// DisplayCap 补全元数据后最多返回的条数
	DisplayCap int `koanf:"display_cap" validate:"gt=0"`
	// ResolverSample 文本偏好解析的抽样数
	ResolverSample int `koanf:"resolver_sample" validate:"gt=0"`
	// Refresh 为 true 时冷启动结果在候选池内随机抽样
	Refresh bool `koanf:"refresh"`
	// ExcludeSeen 已知用户是否排除评过的物品
	ExcludeSeen bool `koanf:"exclude_seen"`
}

// DefaultConfig 返回默认编排参数
func DefaultConfig() Config {
	return Config{
		CandidateK:     60,
		PoolSize:       100,
		MinPopularity:  100,
		DisplayCap:     20,
		ResolverSample: 20,
		Refresh:        true,
		ExcludeSeen:    true,
	}
}

// Policy 冷启动排序策略
func (c Config) Policy() rerank.Policy {
	if c.Refresh {
		return rerank.RandomFromPoolPolicy(c.PoolSize)
	}
	return rerank.DeterministicPolicy()
}

// MovieRecommendation 是补全元数据后的推荐条目，CatalogID 为外部目录 id。
type MovieRecommendation struct {
	CatalogID       string  `json:"id"`
	Title           string  `json:"title"`
	ReleaseDate     string  `json:"release_date"`
	PosterPath      string  `json:"poster_path,omitempty"`
	PredictedRating float64 `json:"predicted_rating"`
}

// TermMatcher 把一条自由文本映射到规范词项；semantic.Matcher 实现了该接口。
type TermMatcher interface {
	Match(ctx context.Context, query string) ([]string, error)
}

// LikedItemResolver 把类型/关键词落到内部物品；resolver.Resolver 实现了该接口。
type LikedItemResolver interface {
	ResolveLikedItems(ctx context.Context, genres, keywords []string, sampleSize int) ([]int64, error)
}

// Deps 编排依赖。Engine、Crosswalk、Metadata 必填；
// 文本偏好路径额外需要 Genres、Keywords 与 Resolver。
type Deps struct {
	Engine    *engine.Engine
	Crosswalk *dataset.Crosswalk
	Metadata  *dataset.MetadataTable

	Genres   TermMatcher
	Keywords TermMatcher
	Resolver LikedItemResolver
}

// Service 推荐编排服务，构建后只读，可并发调用。
type Service struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger
}

// Option 配置 Service
type Option func(*Service)

// WithLogger 设置日志
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New 创建编排服务
func New(deps Deps, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case deps.Engine == nil:
		return nil, invalid("recommender: engine is required")
	case deps.Crosswalk == nil:
		return nil, invalid("recommender: crosswalk is required")
	case deps.Metadata == nil:
		return nil, invalid("recommender: metadata table is required")
	}
	s := &Service{deps: deps, cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recommend 按信号类型分派。
func (s *Service) Recommend(ctx context.Context, sig Signal) ([]MovieRecommendation, error) {
	switch v := sig.(type) {
	case LikedItems:
		return s.RecommendByExplicitItems(ctx, v.ExternalIDs)
	case PreferenceText:
		return s.RecommendByPreferenceText(ctx, v.Genres, v.Keywords)
	case KnownUser:
		return s.RecommendForUser(ctx, v.UserID)
	default:
		return nil, invalid(fmt.Sprintf("recommender: unsupported signal %T", sig))
	}
}

// RecommendByExplicitItems 以外部目录 id 表达的喜欢列表做冷启动推荐。
// 没有映射的 id 被丢弃；全部丢弃时退化为热度推荐。
func (s *Service) RecommendByExplicitItems(ctx context.Context, externalIDs []string) ([]MovieRecommendation, error) {
	defer observe("explicit_items", time.Now())
	log := s.requestLogger(metrics.PathExplicitItems)

	liked, missing := s.deps.Crosswalk.ToInternalAll(externalIDs)
	if missing > 0 {
		metrics.RecordDropped(metrics.ReasonNoCrosswalk, missing)
		log.Info().Int("missing", missing).Int("requested", len(externalIDs)).Msg("dropped liked ids without crosswalk entry")
	}

	out, err := s.recommendLiked(ctx, log, liked)
	if err != nil {
		return nil, err
	}
	metrics.Recommendations.WithLabelValues(metrics.PathExplicitItems).Inc()
	return out, nil
}

// RecommendByPreferenceText 以文本偏好做冷启动推荐：
// 类型与关键词分别经语义匹配得到规范词项（两组并发），再解析成代表性物品。
// 向量编码服务不可用时返回 UNAVAILABLE。
func (s *Service) RecommendByPreferenceText(ctx context.Context, genreQueries, keywordQueries []string) ([]MovieRecommendation, error) {
	defer observe("preference_text", time.Now())
	log := s.requestLogger(metrics.PathPreferenceText)
	if s.deps.Resolver == nil {
		return nil, notSupported("recommender: preference text requires a resolver")
	}

	var genres, keywords []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		genres, err = matchAll(gctx, s.deps.Genres, genreQueries)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = matchAll(gctx, s.deps.Keywords, keywordQueries)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("semantic match failed")
		return nil, err
	}
	log.Debug().Strs("genres", genres).Strs("keywords", keywords).Msg("matched preference terms")

	liked, err := s.deps.Resolver.ResolveLikedItems(ctx, genres, keywords, s.cfg.ResolverSample)
	if err != nil {
		return nil, fmt.Errorf("resolve liked items: %w", err)
	}

	out, err := s.recommendLiked(ctx, log, liked)
	if err != nil {
		return nil, err
	}
	metrics.Recommendations.WithLabelValues(metrics.PathPreferenceText).Inc()
	return out, nil
}

// RecommendForUser 已知用户推荐并补全元数据；未知用户返回 UNKNOWN_ENTITY。
func (s *Service) RecommendForUser(ctx context.Context, userID int64) ([]MovieRecommendation, error) {
	defer observe("known_user_enriched", time.Now())
	log := s.requestLogger(metrics.PathKnownUser).With().Int64("user_id", userID).Logger()

	recs, err := s.deps.Engine.RecommendForKnownUser(ctx, engine.KnownUserRequest{
		UserID:        userID,
		K:             s.cfg.CandidateK,
		MinPopularity: s.cfg.MinPopularity,
		ExcludeSeen:   s.cfg.ExcludeSeen,
	})
	if err != nil {
		return nil, err
	}
	return s.enrich(log, recs), nil
}

func (s *Service) recommendLiked(ctx context.Context, log zerolog.Logger, liked []int64) ([]MovieRecommendation, error) {
	recs, err := s.deps.Engine.RecommendForNewUser(ctx, engine.NewUserRequest{
		LikedItemIDs:  liked,
		K:             s.cfg.CandidateK,
		MinPopularity: s.cfg.MinPopularity,
		Policy:        s.cfg.Policy(),
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("liked", len(liked)).Int("candidates", len(recs)).Msg("engine returned candidates")
	return s.enrich(log, recs), nil
}

// enrich 内部 id -> 外部 id -> 元数据；缺映射或缺元数据的条目被丢弃，结果截断到 DisplayCap。
func (s *Service) enrich(log zerolog.Logger, recs []engine.Recommendation) []MovieRecommendation {
	out := make([]MovieRecommendation, 0, min(len(recs), s.cfg.DisplayCap))
	noLink, noMeta := 0, 0
	for _, r := range recs {
		if len(out) >= s.cfg.DisplayCap {
			break
		}
		ext, ok := s.deps.Crosswalk.ToExternal(r.ItemID)
		if !ok {
			noLink++
			continue
		}
		md, ok := s.deps.Metadata.Get(ext)
		if !ok {
			noMeta++
			continue
		}
		title := md.Title
		if title == "" {
			title = r.Title
		}
		out = append(out, MovieRecommendation{
			CatalogID:       ext,
			Title:           title,
			ReleaseDate:     md.ReleaseDate,
			PosterPath:      md.PosterPath,
			PredictedRating: r.PredictedRating,
		})
	}
	metrics.RecordDropped(metrics.ReasonNoCrosswalk, noLink)
	metrics.RecordDropped(metrics.ReasonNoMetadata, noMeta)
	if noLink > 0 || noMeta > 0 {
		log.Info().Int("no_crosswalk", noLink).Int("no_metadata", noMeta).Msg("dropped recommendations during enrichment")
	}
	return out
}

func (s *Service) requestLogger(path string) zerolog.Logger {
	return s.logger.With().Str("request_id", uuid.NewString()).Str("path", path).Logger()
}

// matchAll 逐条匹配并去重，保持首次出现顺序；空白查询跳过。
func matchAll(ctx context.Context, m TermMatcher, queries []string) ([]string, error) {
	out := []string{}
	seen := make(map[string]struct{})
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if m == nil {
			return nil, notSupported("recommender: no semantic matcher configured")
		}
		terms, err := m.Match(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", q, err)
		}
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}

func invalid(msg string) error {
	return core.NewDomainError(core.ModuleRecommender, core.ErrorCodeInvalidInput, msg)
}

func notSupported(msg string) error {
	return core.NewDomainError(core.ModuleRecommender, core.ErrorCodeNotSupported, msg)
}

func observe(operation string, start time.Time) {
	metrics.RecommendDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
