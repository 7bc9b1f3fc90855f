package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/eval"
	"github.com/rushteam/movierec/logging"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/recommender"
	"github.com/rushteam/movierec/resolver"
	"github.com/rushteam/movierec/semantic"
	"github.com/rushteam/movierec/service"
)

func runTrain(ctx context.Context, args []string) error {
	fs, path := newFlagSet("train")
	rank := fs.Int("rank", 0, "latent rank R (overrides model.svd.rank)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	if *rank > 0 {
		cfg.Model.SVD.Rank = *rank
	}
	log := logging.Component("train")

	var (
		ratings []dataset.Rating
		movies  []dataset.Movie
	)
	err = withLoader(func(l *dataset.Loader) error {
		if ratings, err = l.LoadRatings(ctx, cfg.Data.Ratings); err != nil {
			return err
		}
		movies, err = l.LoadMovies(ctx, cfg.Data.Movies)
		return err
	})
	if err != nil {
		return err
	}

	m, err := model.Fit(ratings, movies, cfg.Model.SVD)
	if err != nil {
		return err
	}
	if err := m.Save(cfg.Model.Dir); err != nil {
		return err
	}
	log.Info().
		Int("ratings", len(ratings)).
		Int("users", m.NumUsers()).
		Int("items", m.NumItems()).
		Int("rank", m.Rank).
		Str("dir", cfg.Model.Dir).
		Msg("model saved")
	return nil
}

func runIndex(ctx context.Context, args []string) error {
	fs, path := newFlagSet("index")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	log := logging.Component("index")

	var entries []dataset.CatalogEntry
	err = withLoader(func(l *dataset.Loader) error {
		entries, err = l.LoadCatalog(ctx, cfg.Data.Catalog)
		return err
	})
	if err != nil {
		return err
	}
	opts := dataset.ExtractFilterOptions(entries)

	enc, svc, err := newEncoder(cfg)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)
	if err := service.TestConnection(ctx, svc); err != nil {
		return err
	}

	targets := []struct {
		name  string
		terms []string
		path  string
	}{
		{"genres", opts.Genres, cfg.Semantic.GenreIndex},
		{"keywords", opts.Keywords, cfg.Semantic.KeywordIndex},
	}
	for _, t := range targets {
		idx, err := semantic.BuildIndex(ctx, enc, t.terms)
		if err != nil {
			return fmt.Errorf("build %s index: %w", t.name, err)
		}
		if err := idx.Save(t.path); err != nil {
			return err
		}
		log.Info().Str("index", t.name).Int("terms", idx.Len()).Str("path", t.path).Msg("index saved")
	}
	return nil
}

func runRecommend(ctx context.Context, args []string) error {
	fs, path := newFlagSet("recommend")
	userID := fs.Int64("user", 0, "known user id")
	liked := fs.String("liked", "", "comma-separated catalog ids the user likes")
	genres := fs.String("genres", "", "comma-separated genre preferences")
	keywords := fs.String("keywords", "", "comma-separated keyword preferences")
	deterministic := fs.Bool("deterministic", false, "disable refresh sampling for cold-start results")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	if *deterministic {
		cfg.Engine.Refresh = false
	}

	sig, err := signalFromFlags(*userID, *liked, *genres, *keywords)
	if err != nil {
		return err
	}
	_, textual := sig.(recommender.PreferenceText)

	m, err := model.Load(cfg.Model.Dir)
	if err != nil {
		return err
	}

	var (
		ratings  []dataset.Rating
		links    []dataset.Link
		metadata []dataset.Metadata
		catalog  []dataset.CatalogEntry
	)
	err = withLoader(func(l *dataset.Loader) error {
		if ratings, err = l.LoadRatings(ctx, cfg.Data.Ratings); err != nil {
			return err
		}
		if links, err = l.LoadLinks(ctx, cfg.Data.Links); err != nil {
			return err
		}
		if metadata, err = l.LoadMetadata(ctx, cfg.Data.Metadata); err != nil {
			return err
		}
		if textual {
			catalog, err = l.LoadCatalog(ctx, cfg.Data.Catalog)
		}
		return err
	})
	if err != nil {
		return err
	}

	cache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore(cache)

	eng, err := buildEngine(ctx, cfg, m, ratings, cache)
	if err != nil {
		return err
	}

	deps := recommender.Deps{
		Engine:    eng,
		Crosswalk: dataset.NewCrosswalk(links),
		Metadata:  dataset.NewMetadataTable(metadata),
	}
	if textual {
		enc, svc, err := newEncoder(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(ctx)

		deps.Genres, err = newMatcher(cfg, cfg.Semantic.GenreIndex, enc, cache)
		if err != nil {
			return err
		}
		deps.Keywords, err = newMatcher(cfg, cfg.Semantic.KeywordIndex, enc, cache)
		if err != nil {
			return err
		}
		deps.Resolver = resolver.New(dataset.NewCatalogTable(catalog), m.Movies,
			resolver.WithSeed(cfg.Resolver.Seed),
			resolver.WithLogger(logging.Component("resolver")))
	}

	svc, err := recommender.New(deps, cfg.Engine, recommender.WithLogger(logging.Component("recommender")))
	if err != nil {
		return err
	}
	recs, err := svc.Recommend(ctx, sig)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, recs)
}

// signalFromFlags 三种输入必须且只能给一种；-genres 与 -keywords 可同时出现。
func signalFromFlags(userID int64, liked, genres, keywords string) (recommender.Signal, error) {
	var sigs []recommender.Signal
	if userID != 0 {
		sigs = append(sigs, recommender.KnownUser{UserID: userID})
	}
	if liked != "" {
		sigs = append(sigs, recommender.LikedItems{ExternalIDs: dataset.SplitTerms(liked)})
	}
	if genres != "" || keywords != "" {
		sigs = append(sigs, recommender.PreferenceText{
			Genres:   dataset.SplitTerms(genres),
			Keywords: dataset.SplitTerms(keywords),
		})
	}
	if len(sigs) != 1 {
		return nil, core.NewDomainError(core.ModuleRecommender, core.ErrorCodeInvalidInput,
			"exactly one of -user, -liked or -genres/-keywords is required")
	}
	return sigs[0], nil
}

func newMatcher(cfg *config.AppConfig, indexPath string, enc core.Encoder, cache core.Store) (*semantic.Matcher, error) {
	idx, err := semantic.LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	opts := []semantic.MatcherOption{
		semantic.WithTopK(cfg.Semantic.TopK),
		semantic.WithMinScore(cfg.Semantic.MinScore),
		semantic.WithLogger(logging.Component("semantic")),
	}
	if cache != nil {
		opts = append(opts, semantic.WithCache(cache, cfg.Semantic.CacheTTL))
	}
	return semantic.NewMatcher(idx, enc, opts...), nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs, path := newFlagSet("evaluate")
	k := fs.Int("k", 0, "cutoff for precision/recall (overrides eval.k)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	if *k > 0 {
		cfg.Eval.K = *k
	}

	var (
		ratings []dataset.Rating
		movies  []dataset.Movie
	)
	err = withLoader(func(l *dataset.Loader) error {
		if ratings, err = l.LoadRatings(ctx, cfg.Data.Ratings); err != nil {
			return err
		}
		movies, err = l.LoadMovies(ctx, cfg.Data.Movies)
		return err
	})
	if err != nil {
		return err
	}

	train, test := eval.Split(ratings, cfg.Eval.TestFraction, cfg.Eval.Seed)
	m, err := model.Fit(train, movies, cfg.Model.SVD)
	if err != nil {
		return err
	}
	eng, err := engine.New(m, dataset.NewRatingTable(train),
		engine.WithFallbackRating(cfg.Model.FallbackRating),
		engine.WithLogger(logging.Component("engine")))
	if err != nil {
		return err
	}
	report, err := eval.Evaluate(ctx, eng, test, cfg.Eval)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, report)
}

func runOptions(ctx context.Context, args []string) error {
	fs, path := newFlagSet("options")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg, err := setup(*path)
	if err != nil {
		return err
	}
	var entries []dataset.CatalogEntry
	err = withLoader(func(l *dataset.Loader) error {
		entries, err = l.LoadCatalog(ctx, cfg.Data.Catalog)
		return err
	})
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, dataset.ExtractFilterOptions(entries))
}
