package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/movierec/core"
)

type seenSet map[[2]int64]bool

func (s seenSet) HasSeen(userID, itemID int64) bool { return s[[2]int64{userID, itemID}] }

type failingFilter struct{}

func (failingFilter) Name() string { return "filter.failing" }
func (failingFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return false, errors.New("boom")
}

func makeItems(pops map[int64]int, ids ...int64) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id)
		it.Features[core.FeaturePopularity] = float64(pops[id])
		it.Score = float64(id) / 10
		out = append(out, it)
	}
	return out
}

func ids(items []*core.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterNode(t *testing.T) {
	pops := map[int64]int{10: 5, 20: 150, 30: 300, 40: 120}
	seen := seenSet{{1, 30}: true}

	tests := []struct {
		name    string
		rctx    *core.RecommendContext
		filters []Filter
		want    []int64
	}{
		{
			name:    "seen excluded for known user",
			rctx:    &core.RecommendContext{UserID: 1},
			filters: []Filter{&SeenFilter{Seen: seen}},
			want:    []int64{10, 20, 40},
		},
		{
			name:    "seen ignored for cold start",
			rctx:    &core.RecommendContext{},
			filters: []Filter{&SeenFilter{Seen: seen}},
			want:    []int64{10, 20, 30, 40},
		},
		{
			name:    "liked excluded",
			rctx:    &core.RecommendContext{LikedItemIDs: []int64{20, 99}},
			filters: []Filter{&LikedFilter{}},
			want:    []int64{10, 30, 40},
		},
		{
			name:    "popularity threshold inclusive",
			rctx:    &core.RecommendContext{},
			filters: []Filter{&PopularityFilter{Min: 120}},
			want:    []int64{20, 30, 40},
		},
		{
			name:    "combined",
			rctx:    &core.RecommendContext{UserID: 1, LikedItemIDs: []int64{40}},
			filters: []Filter{&SeenFilter{Seen: seen}, &LikedFilter{}, &PopularityFilter{Min: 100}},
			want:    []int64{20},
		},
		{
			name: "func filter",
			rctx: &core.RecommendContext{},
			filters: []Filter{Func{
				FilterName: "filter.even",
				Remove:     func(_ *core.RecommendContext, it *core.Item) bool { return it.ID%20 == 0 },
			}},
			want: []int64{10, 30},
		},
		{
			name:    "filter error keeps item",
			rctx:    &core.RecommendContext{},
			filters: []Filter{failingFilter{}},
			want:    []int64{10, 20, 30, 40},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := makeItems(pops, 10, 20, 30, 40)
			got, err := NewFilterNode(tt.filters...).Process(context.Background(), tt.rctx, items)
			if err != nil {
				t.Fatal(err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestFilterNodeLabelsFiltered(t *testing.T) {
	items := makeItems(map[int64]int{1: 0}, 1)
	if _, err := NewFilterNode(&PopularityFilter{Min: 1}).Process(context.Background(), nil, items); err != nil {
		t.Fatal(err)
	}
	lbl, ok := items[0].Labels["filtered"]
	if !ok || lbl.Source != "filter.popularity" {
		t.Errorf("filtered label = %+v, %v", lbl, ok)
	}
}

func TestExprFilter(t *testing.T) {
	if _, err := NewExprFilter(""); err == nil {
		t.Error("expected error for empty expression")
	}
	if _, err := NewExprFilter("item.score >"); err == nil {
		t.Error("expected compile error")
	}

	f, err := NewExprFilter("item.score >= 2.5")
	if err != nil {
		t.Fatal(err)
	}
	items := makeItems(nil, 10, 20, 30, 40)
	got, err := NewFilterNode(f).Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{30, 40}; !equalIDs(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}
