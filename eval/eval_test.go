package eval

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/model"
)

func TestSplit(t *testing.T) {
	var ratings []dataset.Rating
	for i := int64(1); i <= 50; i++ {
		ratings = append(ratings, dataset.Rating{UserID: i, ItemID: i, Value: 3})
	}
	train, test := Split(ratings, 0.2, 42)
	if len(train) != 40 || len(test) != 10 {
		t.Fatalf("split = %d/%d, want 40/10", len(train), len(test))
	}
	train2, test2 := Split(ratings, 0.2, 42)
	for i := range test {
		if test[i] != test2[i] {
			t.Fatal("split not deterministic for a fixed seed")
		}
	}
	if len(train2) != len(train) {
		t.Fatal("train size changed")
	}
	seen := make(map[int64]bool)
	for _, r := range append(train, test...) {
		seen[r.UserID] = true
	}
	if len(seen) != 50 {
		t.Errorf("split lost rows: %d distinct", len(seen))
	}
}

func TestEvaluate(t *testing.T) {
	rows := [][]float64{{1, 2, 1}, {2, 1, 1}, {3, 3, 2}, {4, 5, 3}}
	var train []dataset.Rating
	for u, row := range rows {
		for i, v := range row {
			train = append(train, dataset.Rating{UserID: int64(u + 1), ItemID: int64((i + 1) * 10), Value: v})
		}
	}
	movies := []dataset.Movie{{ID: 10}, {ID: 20}, {ID: 30}, {ID: 40}, {ID: 50}}
	cfg := model.DefaultSVDConfig()
	cfg.Rank = 2
	m, err := model.Fit(train, movies, cfg)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(m, dataset.NewRatingTable(train))
	if err != nil {
		t.Fatal(err)
	}

	test := []dataset.Rating{
		{UserID: 1, ItemID: 10, Value: 1},
		{UserID: 1, ItemID: 40, Value: 5},
		{UserID: 1, ItemID: 50, Value: 4},
		{UserID: 9, ItemID: 10, Value: 3}, // 未知用户，不参与
	}
	ecfg := DefaultConfig()
	ecfg.K = 2
	report, err := Evaluate(context.Background(), eng, test, ecfg)
	if err != nil {
		t.Fatal(err)
	}

	if report.RatedPairs != 3 {
		t.Errorf("RatedPairs = %d, want 3", report.RatedPairs)
	}
	if want := math.Sqrt(25.0 / 3.0); math.Abs(report.RMSE-want) > 1e-6 {
		t.Errorf("RMSE = %v, want %v", report.RMSE, want)
	}
	if report.Users != 1 {
		t.Fatalf("Users = %d, want 1", report.Users)
	}
	if report.Precision != 1 || report.Recall != 1 || report.F1 != 1 {
		t.Errorf("precision/recall/f1 = %v/%v/%v, want 1/1/1", report.Precision, report.Recall, report.F1)
	}
}

func TestEvaluateInvalid(t *testing.T) {
	if _, err := Evaluate(context.Background(), nil, nil, DefaultConfig()); !core.IsInvalidInput(err) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
