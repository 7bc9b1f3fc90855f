package dataset

import (
	"reflect"
	"testing"
)

func TestCrosswalk(t *testing.T) {
	cw := NewCrosswalk([]Link{
		{ItemID: 1, ExternalID: "862"},
		{ItemID: 2, ExternalID: "8844"},
		{ItemID: 3, ExternalID: "862"}, // 多对一：外部 id 862 仍指向 1
		{ItemID: 4, ExternalID: ""},
	})

	tests := []struct {
		name   string
		ext    string
		want   int64
		wantOK bool
	}{
		{"hit", "8844", 2, true},
		{"first link wins", "862", 1, true},
		{"missing", "999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cw.ToInternal(tt.ext)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ToInternal(%q) = (%d, %v), want (%d, %v)", tt.ext, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if ext, ok := cw.ToExternal(3); !ok || ext != "862" {
		t.Errorf("ToExternal(3) = (%q, %v)", ext, ok)
	}
	if _, ok := cw.ToExternal(4); ok {
		t.Errorf("empty external id should not be linked")
	}

	ids, missing := cw.ToInternalAll([]string{"8844", "nope", "862"})
	if !reflect.DeepEqual(ids, []int64{2, 1}) || missing != 1 {
		t.Errorf("ToInternalAll = %v, %d", ids, missing)
	}
}

func TestMetadataTable(t *testing.T) {
	mt := NewMetadataTable([]Metadata{
		{ID: "862", Title: "Toy Story", ReleaseDate: "1995-10-30"},
		{ID: "862", Title: "Duplicate"},
		{ID: "", Title: "No id"},
	})
	if mt.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", mt.Len())
	}
	m, ok := mt.Get("862")
	if !ok || m.Title != "Toy Story" {
		t.Errorf("Get(862) = %+v, %v", m, ok)
	}
}
