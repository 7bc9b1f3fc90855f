package dsl

import (
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	item := core.NewItem(42)
	item.Score = 4.2
	item.Features[core.FeaturePopularity] = 250
	item.Meta[core.MetaTitle] = "The Matrix (1999)"
	item.PutLabel("recall_source", utils.Label{Value: "mf", Source: "recall"})
	rctx := &core.RecommendContext{UserID: 7, LikedItemIDs: []int64{1, 42}}
	rctx.PutLabel(core.LabelPath, utils.Label{Value: "known_user", Source: "engine"})

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty", "", true},
		{"score", "item.score >= 4.0", true},
		{"score false", "item.score > 4.5", false},
		{"popularity", "item.features.popularity >= 100.0", true},
		{"title", `item.meta.title.contains("Matrix")`, true},
		{"label", `label.recall_source == "mf"`, true},
		{"user", "rctx.user_id == 7", true},
		{"liked", "item.id in rctx.liked_item_ids", true},
		{"path", `rctx.path == "known_user"`, true},
		{"logic", `item.score > 4.0 && !item.meta.title.contains("Alien")`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEval(item, rctx).Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	item := core.NewItem(1)
	for _, expr := range []string{"item.score >", "item.score + 1.0"} {
		if _, err := NewEval(item, nil).Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) expected error", expr)
		}
	}
}

func TestCompileCaches(t *testing.T) {
	a, err := Compile("item.score > 1.0")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile("item.score > 1.0")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected cached program to be reused")
	}
}
