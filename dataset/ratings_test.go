package dataset

import (
	"math"
	"reflect"
	"testing"
)

func TestNewRatingTable(t *testing.T) {
	table := NewRatingTable([]Rating{
		{UserID: 1, ItemID: 10, Value: 3},
		{UserID: 1, ItemID: 20, Value: 4},
		{UserID: 2, ItemID: 10, Value: 5},
		{UserID: 1, ItemID: 10, Value: 1}, // 重复，保留最后一次
		{UserID: 0, ItemID: 30, Value: 4}, // 缺失用户
		{UserID: 3, ItemID: 30, Value: math.NaN()},
	})

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	if table.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", table.Dropped())
	}
	if got := table.Ratings()[0].Value; got != 1 {
		t.Errorf("duplicate should keep last value, got %v", got)
	}

	tests := []struct {
		item int64
		want int
	}{
		{10, 2},
		{20, 1},
		{30, 0},
	}
	for _, tt := range tests {
		if got := table.Popularity(tt.item); got != tt.want {
			t.Errorf("Popularity(%d) = %d, want %d", tt.item, got, tt.want)
		}
	}

	if !table.HasSeen(1, 20) || table.HasSeen(2, 20) {
		t.Errorf("HasSeen mismatch")
	}
	if got := table.SeenItems(1); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Errorf("SeenItems(1) = %v", got)
	}
	if got := table.Items(); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Errorf("Items() = %v", got)
	}
	if got := table.Users(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("Users() = %v", got)
	}
}
