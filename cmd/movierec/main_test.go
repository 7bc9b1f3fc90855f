package main

import (
	"context"
	"testing"

	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/recommender"
)

func TestSignalFromFlags(t *testing.T) {
	tests := []struct {
		name                    string
		user                    int64
		liked, genres, keywords string
		want                    recommender.Signal
		wantErr                 bool
	}{
		{name: "user", user: 7, want: recommender.KnownUser{UserID: 7}},
		{name: "liked", liked: "862, 8844", want: recommender.LikedItems{ExternalIDs: []string{"862", "8844"}}},
		{name: "keywords only", keywords: "space", want: recommender.PreferenceText{Genres: []string{}, Keywords: []string{"space"}}},
		{name: "none", wantErr: true},
		{name: "two signals", user: 1, liked: "862", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := signalFromFlags(tt.user, tt.liked, tt.genres, tt.keywords)
			if tt.wantErr {
				if !core.IsInvalidInput(err) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			switch want := tt.want.(type) {
			case recommender.KnownUser:
				if got != want {
					t.Errorf("got %#v, want %#v", got, want)
				}
			case recommender.LikedItems:
				g, ok := got.(recommender.LikedItems)
				if !ok || len(g.ExternalIDs) != 2 || g.ExternalIDs[1] != "8844" {
					t.Errorf("got %#v", got)
				}
			case recommender.PreferenceText:
				g, ok := got.(recommender.PreferenceText)
				if !ok || len(g.Genres) != 0 || len(g.Keywords) != 1 {
					t.Errorf("got %#v", got)
				}
			}
		})
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	st, err := openCache(ctx, config.CacheConfig{Backend: config.CacheNone})
	if err != nil || st != nil {
		t.Errorf("none backend = %v, %v", st, err)
	}

	st, err = openCache(ctx, config.CacheConfig{Backend: config.CacheMemory})
	if err != nil || st == nil || st.Name() != "memory" {
		t.Fatalf("memory backend = %v, %v", st, err)
	}
	closeStore(st)

	if _, err := openCache(ctx, config.CacheConfig{Backend: config.CacheBadger}); !core.IsInvalidInput(err) {
		t.Errorf("badger without dir err = %v, want INVALID_INPUT", err)
	}
	if _, err := openCache(ctx, config.CacheConfig{Backend: "etcd"}); !core.IsInvalidInput(err) {
		t.Errorf("unknown backend err = %v, want INVALID_INPUT", err)
	}
}
