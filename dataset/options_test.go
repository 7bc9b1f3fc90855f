package dataset

import (
	"reflect"
	"testing"
)

func TestExtractFilterOptions(t *testing.T) {
	opts := ExtractFilterOptions([]CatalogEntry{
		{Genres: "Comedy, Romance", Keywords: "high school, friendship", OriginalLanguage: "en", ReleaseDate: "1999-03-05"},
		{Genres: "Science Fiction,Action", Keywords: "robot", OriginalLanguage: "ja", ReleaseDate: "2015"},
		{Genres: "", Keywords: " , ", OriginalLanguage: "en", ReleaseDate: "unknown"},
	})

	want := FilterOptions{
		Genres:    []string{"Action", "Comedy", "Romance", "Science Fiction"},
		Keywords:  []string{"friendship", "high school", "robot"},
		Languages: []string{"en", "ja"},
		MinYear:   1999,
		MaxYear:   2015,
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("ExtractFilterOptions() = %+v, want %+v", opts, want)
	}
}

func TestSplitTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"Drama", []string{"Drama"}},
		{" a , b,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := SplitTerms(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitTerms(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
