package resolver

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/dataset"
)

func testFixture() (*dataset.CatalogTable, *dataset.MovieCatalog) {
	var entries []dataset.CatalogEntry
	var movies []dataset.Movie
	for i := 1; i <= 12; i++ {
		genres := "Drama"
		if i%2 == 0 {
			genres = "Comedy, Romance"
		}
		keywords := "friendship"
		if i%3 == 0 {
			keywords = "high school, robot"
		}
		title := fmt.Sprintf("Movie %d", i)
		entries = append(entries, dataset.CatalogEntry{ID: fmt.Sprint(1000 + i), Title: title, Genres: genres, Keywords: keywords})
		movies = append(movies, dataset.Movie{ID: int64(i), Title: title + " (2001)", Genres: genres})
	}
	// 片名需要规范化才能对上
	entries = append(entries, dataset.CatalogEntry{ID: "2000", Title: "The Matrix", Genres: "Action, Science Fiction", Keywords: "robot"})
	movies = append(movies, dataset.Movie{ID: 2571, Title: "Matrix, The (1999)"})
	// 内部片库中不存在
	entries = append(entries, dataset.CatalogEntry{ID: "3000", Title: "Unknown Comedy", Genres: "Comedy", Keywords: ""})
	return dataset.NewCatalogTable(entries), dataset.NewMovieCatalog(movies)
}

func isComedy(id int64) bool {
	return id%2 == 0 && id <= 12
}

func TestResolveLikedItems_GenreOnly(t *testing.T) {
	catalog, movies := testFixture()
	r := New(catalog, movies)

	got, err := r.ResolveLikedItems(context.Background(), []string{"Comedy"}, nil, 5)
	if err != nil {
		t.Fatalf("ResolveLikedItems: %v", err)
	}
	if len(got) == 0 || len(got) > 5 {
		t.Fatalf("len = %d, want 1..5", len(got))
	}
	for _, id := range got {
		if !isComedy(id) {
			t.Errorf("item %d is not a comedy", id)
		}
	}
}

func TestResolveLikedItems_Deterministic(t *testing.T) {
	catalog, movies := testFixture()
	r := New(catalog, movies)
	ctx := context.Background()

	a, _ := r.ResolveLikedItems(ctx, []string{"comedy"}, []string{"friendship"}, 3)
	b, _ := r.ResolveLikedItems(ctx, []string{"COMEDY"}, []string{"Friendship"}, 3)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("fixed seed should give identical samples: %v vs %v", a, b)
	}
}

func TestResolveLikedItems_Cases(t *testing.T) {
	catalog, movies := testFixture()
	r := New(catalog, movies)

	tests := []struct {
		name     string
		genres   []string
		keywords []string
		size     int
		check    func(t *testing.T, got []int64)
	}{
		{
			name:     "both dimensions must match",
			genres:   []string{"comedy"},
			keywords: []string{"high school"},
			size:     20,
			check: func(t *testing.T, got []int64) {
				want := map[int64]bool{6: true, 12: true}
				if len(got) != len(want) {
					t.Errorf("got %v, want items 6 and 12", got)
				}
				for _, id := range got {
					if !want[id] {
						t.Errorf("unexpected item %d", id)
					}
				}
			},
		},
		{
			name:     "keyword only, title normalized",
			keywords: []string{"ROBOT"},
			size:     20,
			check: func(t *testing.T, got []int64) {
				found := false
				for _, id := range got {
					if id == 2571 {
						found = true
					}
				}
				if !found {
					t.Errorf("The Matrix should resolve via normalized title, got %v", got)
				}
			},
		},
		{
			name:   "no match is empty, not error",
			genres: []string{"western"},
			size:   5,
			check: func(t *testing.T, got []int64) {
				if got == nil || len(got) != 0 {
					t.Errorf("got %v, want empty slice", got)
				}
			},
		},
		{
			name: "empty filters match everything",
			size: 100,
			check: func(t *testing.T, got []int64) {
				// 14 条目录记录，其中 1 条片名对不上
				if len(got) != 13 {
					t.Errorf("len = %d, want 13", len(got))
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveLikedItems(context.Background(), tt.genres, tt.keywords, tt.size)
			if err != nil {
				t.Fatalf("ResolveLikedItems: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestResolveLikedItems_Canceled(t *testing.T) {
	catalog, movies := testFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(catalog, movies).ResolveLikedItems(ctx, nil, nil, 5); err == nil {
		t.Errorf("expected context error")
	}
}
