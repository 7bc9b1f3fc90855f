package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	movies := []dataset.Movie{{ID: 10, Title: "Ten"}, {ID: 20, Title: "Twenty"}, {ID: 30, Title: "Thirty"}}
	cfg := DefaultSVDConfig()
	cfg.Rank = 2
	m, err := Fit(rank2Ratings(), movies, cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "svd")
	if err := m.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Rank != m.Rank || loaded.NumUsers() != m.NumUsers() || loaded.NumItems() != m.NumItems() {
		t.Fatalf("loaded shape mismatch")
	}
	for u := 0; u < m.NumUsers(); u++ {
		for i := 0; i < m.NumItems(); i++ {
			if got, want := loaded.Predict(u, i), m.Predict(u, i); got != want {
				t.Errorf("Predict(%d,%d) = %v after load, want %v", u, i, got, want)
			}
		}
	}
	if loaded.Movies.Title(20) != "Twenty" {
		t.Errorf("movie snapshot not restored")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cfg := DefaultSVDConfig()
	cfg.Rank = 2
	m, err := Fit(rank2Ratings(), nil, cfg)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(dir string) error
	}{
		{"missing dir", func(dir string) error { return os.RemoveAll(dir) }},
		{"missing item factors", func(dir string) error { return os.Remove(filepath.Join(dir, ItemFactorsFile)) }},
		{"corrupt manifest", func(dir string) error {
			return os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0o644)
		}},
		{"encoder size mismatch", func(dir string) error {
			return os.WriteFile(filepath.Join(dir, UserIDsFile), []byte("[1,2]"), 0o644)
		}},
		{"unsorted encoder", func(dir string) error {
			return os.WriteFile(filepath.Join(dir, ItemIDsFile), []byte("[30,20,10]"), 0o644)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "svd")
			if err := m.Save(dir); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := tt.mutate(dir); err != nil {
				t.Fatalf("mutate: %v", err)
			}
			if _, err := Load(dir); !core.IsInvalidInput(err) {
				t.Errorf("Load err = %v, want INVALID_INPUT", err)
			}
		})
	}
}
