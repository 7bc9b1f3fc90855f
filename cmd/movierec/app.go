package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/movierec/config"
	_ "github.com/rushteam/movierec/config/builders"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/logging"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/service"
	"github.com/rushteam/movierec/store"
)

// newFlagSet 每个子命令共用的 -config 参数。
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file (defaults to $"+config.ConfigPathEnvVar+")")
	return fs, path
}

// setup 加载配置并初始化日志。
func setup(path string) (*config.AppConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Logging)
	return cfg, nil
}

// openCache 按配置打开查询向量缓存与热度榜共用的存储；backend 为 none 时返回 nil。
func openCache(ctx context.Context, cfg config.CacheConfig) (core.Store, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory, "":
		return store.NewMemoryStore(), nil
	case config.CacheRedis:
		return store.NewRedisStore(ctx, cfg.Redis)
	case config.CacheBadger:
		if cfg.BadgerDir == "" {
			return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
				"cache.badger_dir is required for the badger backend")
		}
		return store.OpenBadgerStore(cfg.BadgerDir)
	default:
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unknown cache backend %q", cfg.Backend))
	}
}

func closeStore(st core.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		log := logging.Component("cli")
		log.Warn().Err(err).Str("store", st.Name()).Msg("close store")
	}
}

// newEncoder 连接句向量服务。
func newEncoder(cfg *config.AppConfig) (*model.BERTModel, core.MLService, error) {
	svc, err := service.NewMLService(&cfg.Embedding, logging.Component("embedding"))
	if err != nil {
		return nil, nil, fmt.Errorf("embedding service: %w", err)
	}
	enc := model.NewBERTModel(svc, cfg.Embedding.ModelName, cfg.Embedding.Dimension)
	if cfg.Embedding.ModelVersion != "" {
		enc.WithModelVersion(cfg.Embedding.ModelVersion)
	}
	return enc, svc, nil
}

// buildEngine 组装引擎：扩展节点来自 cfg.Pipeline，有缓存时热度榜写入缓存并从缓存召回。
func buildEngine(ctx context.Context, cfg *config.AppConfig, m *model.SVDModel, ratings []dataset.Rating, cache core.Store) (*engine.Engine, error) {
	extra, err := config.LoadPipelineNodes(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	table := dataset.NewRatingTable(ratings)
	if table.Dropped() > 0 {
		log := logging.Component("cli")
		log.Warn().Int("dropped", table.Dropped()).Msg("ratings with missing keys dropped")
	}

	opts := []engine.Option{
		engine.WithFallbackRating(cfg.Model.FallbackRating),
		engine.WithExtraNodes(extra...),
		engine.WithLogger(logging.Component("engine")),
	}
	if cache != nil {
		opts = append(opts, engine.WithLeaderboard(cache, cfg.Cache.LeaderboardKey))
	}
	eng, err := engine.New(m, table, opts...)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := eng.PublishLeaderboard(ctx); err != nil {
			return nil, fmt.Errorf("publish leaderboard: %w", err)
		}
	}
	return eng, nil
}

func withLoader(fn func(l *dataset.Loader) error) error {
	l, err := dataset.NewLoader()
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseFlags 解析子命令参数；-h 不视为失败。
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	return err
}
