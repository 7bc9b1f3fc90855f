package rerank

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/rushteam/movierec/core"
)

func scored(scores map[int64]float64, pops map[int64]int, ids ...int64) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id)
		it.Score = scores[id]
		it.Features[core.FeaturePopularity] = float64(pops[id])
		out = append(out, it)
	}
	return out
}

func idsOf(items []*core.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func sameIDs(a, b []int64) bool {
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

func TestSortNode(t *testing.T) {
	scores := map[int64]float64{1: 3.0, 2: 4.5, 3: 3.0, 4: 1.0}
	pops := map[int64]int{1: 10, 2: 10, 3: 50, 4: 5}

	tests := []struct {
		by   SortBy
		want []int64
	}{
		{SortByScore, []int64{2, 1, 3, 4}},
		{SortByPopularity, []int64{3, 1, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			items := scored(scores, pops, 4, 3, 2, 1)
			got, err := (&SortNode{By: tt.by}).Process(context.Background(), nil, items)
			if err != nil {
				t.Fatal(err)
			}
			if !sameIDs(idsOf(got), tt.want) {
				t.Errorf("got %v, want %v", idsOf(got), tt.want)
			}
		})
	}
}

func TestTopNNode(t *testing.T) {
	items := scored(nil, nil, 1, 2, 3)
	tests := []struct {
		n    int
		want int
	}{
		{0, 3}, {-1, 3}, {2, 2}, {5, 3},
	}
	for _, tt := range tests {
		got, _ := (&TopNNode{N: tt.n}).Process(context.Background(), nil, items)
		if len(got) != tt.want {
			t.Errorf("TopN(%d) len = %d, want %d", tt.n, len(got), tt.want)
		}
	}
}

func TestTopNNodeLabelsRank(t *testing.T) {
	got, _ := (&TopNNode{N: 2}).Process(context.Background(), nil, scored(nil, nil, 7, 8, 9))
	for i, want := range []string{"1", "2"} {
		if lbl := got[i].Labels[LabelRank]; lbl.Value != want {
			t.Errorf("item %d rank = %q, want %q", got[i].ID, lbl.Value, want)
		}
	}
}

func TestPolicyNodeDeterministic(t *testing.T) {
	items := scored(nil, nil, 1, 2, 3, 4, 5)
	node := &PolicyNode{Policy: DeterministicPolicy(), K: 3}
	got, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatal(err)
	}
	if !sameIDs(idsOf(got), []int64{1, 2, 3}) {
		t.Errorf("got %v", idsOf(got))
	}

	got, _ = (&PolicyNode{Policy: DeterministicPolicy(), K: 0}).Process(context.Background(), nil, items)
	if len(got) != 0 {
		t.Errorf("K=0 should return empty, got %v", idsOf(got))
	}
}

func TestPolicyNodeRandomFromPool(t *testing.T) {
	ids := make([]int64, 0, 50)
	for i := int64(1); i <= 50; i++ {
		ids = append(ids, i)
	}

	node := &PolicyNode{Policy: RandomFromPoolPolicy(10), K: 4, Rand: rand.New(rand.NewPCG(1, 2))}
	seen := make(map[string]bool)
	for round := 0; round < 20; round++ {
		got, err := node.Process(context.Background(), nil, scored(nil, nil, ids...))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 4 {
			t.Fatalf("len = %d, want 4", len(got))
		}
		uniq := make(map[int64]bool)
		prev := int64(0)
		for _, it := range got {
			if it.ID < 1 || it.ID > 10 {
				t.Errorf("item %d outside pool", it.ID)
			}
			if uniq[it.ID] {
				t.Errorf("duplicate item %d", it.ID)
			}
			if it.ID <= prev {
				t.Errorf("sampled items out of rank order: %v", idsOf(got))
			}
			uniq[it.ID] = true
			prev = it.ID
		}
		key := ""
		for _, id := range idsOf(got) {
			key += string(rune('a' + id))
		}
		seen[key] = true
	}
	if len(seen) < 2 {
		t.Error("expected sampling to vary across calls")
	}
}

func TestPolicyNodeSmallPool(t *testing.T) {
	items := scored(nil, nil, 1, 2)
	got, _ := (&PolicyNode{Policy: RandomFromPoolPolicy(0), K: 5}).Process(context.Background(), nil, items)
	if !sameIDs(idsOf(got), []int64{1, 2}) {
		t.Errorf("got %v", idsOf(got))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Deterministic, false},
		{"deterministic", Deterministic, false},
		{"Random_From_Pool", RandomFromPool, false},
		{"refresh", RandomFromPool, false},
		{"shuffle", Deterministic, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}
