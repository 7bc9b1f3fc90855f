package recommender

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/model"
	"github.com/rushteam/movierec/resolver"
)

type mapMatcher map[string][]string

func (m mapMatcher) Match(_ context.Context, query string) ([]string, error) {
	return m[query], nil
}

type downMatcher struct{}

func (downMatcher) Match(context.Context, string) ([]string, error) {
	return nil, core.NewDomainError(core.ModuleSemantic, core.ErrorCodeUnavailable, "encoder down")
}

// 物品 101..107 热度依次递减；103 没有元数据，107 没有外部映射
func newService(t *testing.T, deps Deps, cfg Config) *Service {
	t.Helper()
	raters := []int{6, 5, 4, 3, 2, 1, 1}
	var ratings []dataset.Rating
	var movies []dataset.Movie
	var links []dataset.Link
	var meta []dataset.Metadata
	var catalog []dataset.CatalogEntry
	for j, n := range raters {
		item := int64(101 + j)
		for u := 1; u <= n; u++ {
			ratings = append(ratings, dataset.Rating{UserID: int64(u), ItemID: item, Value: float64(1 + (u+2*j)%5)})
		}
		title := fmt.Sprintf("Movie %d (2001)", item)
		movies = append(movies, dataset.Movie{ID: item, Title: title})
		ext := fmt.Sprintf("e%d", item)
		if item != 107 {
			links = append(links, dataset.Link{ItemID: item, ExternalID: ext})
		}
		if item != 103 {
			meta = append(meta, dataset.Metadata{ID: ext, Title: fmt.Sprintf("Movie %d", item), ReleaseDate: "2001-01-01"})
		}
		genres := "Drama"
		if item == 101 || item == 102 {
			genres = "Science Fiction"
		}
		catalog = append(catalog, dataset.CatalogEntry{ID: ext, Title: fmt.Sprintf("Movie %d", item), Genres: genres, Keywords: "robot"})
	}

	svdCfg := model.DefaultSVDConfig()
	svdCfg.Rank = 3
	m, err := model.Fit(ratings, movies, svdCfg)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(m, dataset.NewRatingTable(ratings))
	if err != nil {
		t.Fatal(err)
	}
	deps.Engine = eng
	deps.Crosswalk = dataset.NewCrosswalk(links)
	deps.Metadata = dataset.NewMetadataTable(meta)
	if deps.Resolver == nil {
		deps.Resolver = resolver.New(dataset.NewCatalogTable(catalog), m.Movies)
	}
	svc, err := New(deps, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CandidateK = 10
	cfg.MinPopularity = 0
	cfg.DisplayCap = 3
	cfg.Refresh = false
	return cfg
}

func catalogIDs(recs []MovieRecommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.CatalogID
	}
	return out
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}, DefaultConfig()); !core.IsInvalidInput(err) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestRecommendByExplicitItems(t *testing.T) {
	svc := newService(t, Deps{}, testConfig())
	ctx := context.Background()

	t.Run("popularity fallback enriched", func(t *testing.T) {
		recs, err := svc.RecommendByExplicitItems(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		// 103 缺元数据被丢弃
		if want := []string{"e101", "e102", "e104"}; !slices.Equal(catalogIDs(recs), want) {
			t.Errorf("got %v, want %v", catalogIDs(recs), want)
		}
		for _, r := range recs {
			if r.ReleaseDate != "2001-01-01" || r.Title == "" {
				t.Errorf("incomplete enrichment: %+v", r)
			}
			if r.PredictedRating != engine.DefaultFallbackRating {
				t.Errorf("%s predicted %v", r.CatalogID, r.PredictedRating)
			}
		}
	})

	t.Run("liked items excluded", func(t *testing.T) {
		recs, err := svc.RecommendByExplicitItems(ctx, []string{"e101", "unknown"})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) == 0 || len(recs) > 3 {
			t.Fatalf("len = %d, want 1..3", len(recs))
		}
		for _, r := range recs {
			if r.CatalogID == "e101" || r.CatalogID == "e103" {
				t.Errorf("unexpected %s in %v", r.CatalogID, catalogIDs(recs))
			}
			if r.PredictedRating < 1 || r.PredictedRating > 5 {
				t.Errorf("%s predicted %v outside scale", r.CatalogID, r.PredictedRating)
			}
		}
	})
}

func TestRecommendByPreferenceText(t *testing.T) {
	matcher := mapMatcher{"space robots": {"Science Fiction"}, "machines": {"robot"}}
	svc := newService(t, Deps{Genres: matcher, Keywords: matcher}, testConfig())

	recs, err := svc.RecommendByPreferenceText(context.Background(), []string{"space robots", " "}, []string{"machines"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	for _, r := range recs {
		if r.CatalogID == "e101" || r.CatalogID == "e102" {
			t.Errorf("resolved liked item %s recommended", r.CatalogID)
		}
	}
}

func TestRecommendByPreferenceTextUnavailable(t *testing.T) {
	svc := newService(t, Deps{Genres: downMatcher{}, Keywords: mapMatcher{}}, testConfig())
	_, err := svc.RecommendByPreferenceText(context.Background(), []string{"anything"}, nil)
	if !core.IsUnavailable(err) {
		t.Errorf("expected UNAVAILABLE, got %v", err)
	}
}

func TestRecommendDispatch(t *testing.T) {
	svc := newService(t, Deps{Genres: mapMatcher{}, Keywords: mapMatcher{}}, testConfig())
	ctx := context.Background()

	if _, err := svc.Recommend(ctx, KnownUser{UserID: 999}); !core.IsUnknownEntity(err) {
		t.Errorf("expected UNKNOWN_ENTITY, got %v", err)
	}

	recs, err := svc.Recommend(ctx, KnownUser{UserID: 6})
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(catalogIDs(recs), "e101") {
		t.Errorf("seen item recommended: %v", catalogIDs(recs))
	}

	explicit, err := svc.Recommend(ctx, LikedItems{})
	if err != nil {
		t.Fatal(err)
	}
	if len(explicit) != 3 {
		t.Errorf("len = %d, want 3", len(explicit))
	}

	if _, err := svc.Recommend(ctx, PreferenceText{}); err != nil {
		t.Errorf("empty preference text: %v", err)
	}
}

func TestConfigPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if p := cfg.Policy(); p.PoolSize != 100 || p.String() != "random_from_pool(100)" {
		t.Errorf("default policy = %v", p)
	}
	cfg.Refresh = false
	if p := cfg.Policy(); p.String() != "deterministic" {
		t.Errorf("policy = %v", p)
	}
}
