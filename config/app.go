// Package config 提供应用配置（koanf）与可配置 Node 的注册表。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/eval"
	"github.com/rushteam/movierec/logging"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/recommender"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/semantic"
	"github.com/rushteam/movierec/service"
	"github.com/rushteam/movierec/store"
)

// EnvPrefix 环境变量前缀；层级用双下划线分隔，
// 例如 MOVIEREC_ENGINE__MIN_POPULARITY=50 覆盖 engine.min_popularity。
const EnvPrefix = "MOVIEREC_"

// ConfigPathEnvVar 可以覆盖配置文件路径的环境变量
const ConfigPathEnvVar = "MOVIEREC_CONFIG"

// 缓存后端
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// AppConfig 应用配置
type AppConfig struct {
	Data      DataConfig            `koanf:"data"`
	Model     ModelConfig           `koanf:"model"`
	Engine    recommender.Config    `koanf:"engine"`
	Semantic  SemanticConfig        `koanf:"semantic"`
	Resolver  ResolverConfig        `koanf:"resolver"`
	Cache     CacheConfig           `koanf:"cache"`
	Logging   logging.Config        `koanf:"logging"`
	Embedding service.ServiceConfig `koanf:"embedding"`
	Eval      eval.Config           `koanf:"eval"`

	// Pipeline 扩展节点配置文件（YAML/JSON），为空表示只用内置节点
	Pipeline string `koanf:"pipeline"`
}

// DataConfig 输入表（CSV）路径
type DataConfig struct {
	Ratings  string `koanf:"ratings" validate:"required"`
	Movies   string `koanf:"movies" validate:"required"`
	Links    string `koanf:"links"`
	Metadata string `koanf:"metadata"`
	Catalog  string `koanf:"catalog"`
}

// ModelConfig 模型训练与加载
type ModelConfig struct {
	Dir string          `koanf:"dir" validate:"required"`
	SVD model.SVDConfig `koanf:"svd"`
	// FallbackRating 热度兜底结果的占位预测分
	FallbackRating float64 `koanf:"fallback_rating" validate:"gte=1,lte=5"`
}

// SemanticConfig 语义匹配
type SemanticConfig struct {
	GenreIndex   string  `koanf:"genre_index"`
	KeywordIndex string  `koanf:"keyword_index"`
	TopK         int     `koanf:"top_k" validate:"gt=0"`
	MinScore     float64 `koanf:"min_score" validate:"gte=-1,lte=1"`
	// CacheTTL 查询向量缓存时间（秒），0 表示不过期
	CacheTTL int `koanf:"cache_ttl" validate:"gte=0"`
}

// ResolverConfig 偏好解析
type ResolverConfig struct {
	Seed uint64 `koanf:"seed"`
}

// CacheConfig 查询向量缓存与热度榜的存储后端
type CacheConfig struct {
	Backend        string             `koanf:"backend" validate:"oneof=none memory redis badger"`
	Redis          store.RedisOptions `koanf:"redis"`
	BadgerDir      string             `koanf:"badger_dir"`
	LeaderboardKey string             `koanf:"leaderboard_key"`
}

// Default 返回默认配置
func Default() *AppConfig {
	return &AppConfig{
		Data: DataConfig{
			Ratings:  "data/ratings.csv",
			Movies:   "data/movies.csv",
			Links:    "data/links.csv",
			Metadata: "data/movies_metadata.csv",
			Catalog:  "data/catalog.csv",
		},
		Model: ModelConfig{
			Dir:            "artifacts/svd",
			SVD:            model.DefaultSVDConfig(),
			FallbackRating: engine.DefaultFallbackRating,
		},
		Engine: recommender.DefaultConfig(),
		Semantic: SemanticConfig{
			GenreIndex:   "artifacts/genres.json",
			KeywordIndex: "artifacts/keywords.json",
			TopK:         semantic.DefaultTopK,
			MinScore:     semantic.DefaultMinScore,
			CacheTTL:     int((24 * time.Hour).Seconds()),
		},
		Resolver: ResolverConfig{Seed: 42},
		Cache: CacheConfig{
			Backend:        CacheMemory,
			Redis:          store.RedisOptions{Addr: "127.0.0.1:6379", KeyPrefix: "movierec:"},
			BadgerDir:      "",
			LeaderboardKey: recall.DefaultHotKey,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
		Embedding: service.ServiceConfig{
			Type:      service.ServiceTypeTorchServe,
			Endpoint:  "http://localhost:8080",
			ModelName: "all-MiniLM-L6-v2",
			Dimension: 384,
			Timeout:   10 * time.Second,
			Breaker:   service.DefaultBreakerConfig(),
		},
		Eval: eval.DefaultConfig(),
	}
}

// Load 依次叠加：默认值 -> 配置文件（YAML）-> 环境变量，然后校验。
// path 为空时读取 MOVIEREC_CONFIG 指向的文件；都没有则只用默认值与环境变量。
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envTransform(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 结构校验，失败返回 INVALID_INPUT，消息中列出全部出错字段。
func (c *AppConfig) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
		"configuration validation failed: "+strings.Join(msgs, "; "))
}
