package model

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestIDEncoder(t *testing.T) {
	enc := NewIDEncoder([]int64{30, 10, 20, 10})

	if enc.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", enc.Len())
	}
	tests := []struct {
		id      int64
		wantIdx int
		wantOK  bool
	}{
		{10, 0, true},
		{20, 1, true},
		{30, 2, true},
		{40, 0, false},
	}
	for _, tt := range tests {
		idx, ok := enc.Encode(tt.id)
		if idx != tt.wantIdx || ok != tt.wantOK {
			t.Errorf("Encode(%d) = (%d, %v), want (%d, %v)", tt.id, idx, ok, tt.wantIdx, tt.wantOK)
		}
	}
	if id, ok := enc.Decode(2); !ok || id != 30 {
		t.Errorf("Decode(2) = (%d, %v)", id, ok)
	}
	if _, ok := enc.Decode(3); ok {
		t.Errorf("Decode(3) should fail")
	}
}

func TestIDEncoder_JSON(t *testing.T) {
	enc := NewIDEncoder([]int64{5, 1, 3})
	data, err := json.Marshal(enc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[1,3,5]" {
		t.Errorf("Marshal = %s", data)
	}

	var got IDEncoder
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got.IDs(), enc.IDs()) {
		t.Errorf("round trip ids = %v", got.IDs())
	}

	if err := json.Unmarshal([]byte("[3,1]"), &got); err == nil {
		t.Errorf("unsorted ids should be rejected")
	}
}
