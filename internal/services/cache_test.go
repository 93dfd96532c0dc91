package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/soundpost/internal/models"
	tu "github.com/desertthunder/soundpost/internal/testing"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachedCatalog(t *testing.T) {
	ctx := context.Background()
	track := models.MusicTrack{ID: "1", Title: "One More Time", Artist: "Daft Punk", Duration: 320}

	t.Run("Search Hit", func(t *testing.T) {
		mr, client := setupCache(t)
		mock := &tu.MockCatalog{Results: []models.MusicTrack{track}}
		c := NewCachedCatalog(mock, client, time.Minute, nil)

		q := models.SearchQuery{Query: "Daft Punk", Limit: 10}
		for range 3 {
			res, err := c.SearchTracks(ctx, q)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Tracks) != 1 || res.Tracks[0].Title != "One More Time" {
				t.Errorf("unexpected result: %+v", res)
			}
		}

		if mock.Searches != 1 {
			t.Errorf("expected one upstream search, got %d", mock.Searches)
		}
		if !mr.Exists(SearchKey(q)) {
			t.Errorf("expected key %s in redis", SearchKey(q))
		}
		if ttl := mr.TTL(SearchKey(q)); ttl != time.Minute {
			t.Errorf("expected ttl 1m, got %v", ttl)
		}
	})

	t.Run("Expired Entry Refetches", func(t *testing.T) {
		mr, client := setupCache(t)
		mock := &tu.MockCatalog{Results: []models.MusicTrack{track}}
		c := NewCachedCatalog(mock, client, time.Minute, nil)

		q := models.SearchQuery{Query: "daft"}
		c.SearchTracks(ctx, q)
		mr.FastForward(2 * time.Minute)
		c.SearchTracks(ctx, q)

		if mock.Searches != 2 {
			t.Errorf("expected a refetch after expiry, got %d searches", mock.Searches)
		}
	})

	t.Run("Short Query Bypasses Cache", func(t *testing.T) {
		mr, client := setupCache(t)
		mock := &tu.MockCatalog{}
		c := NewCachedCatalog(mock, client, 0, nil)

		c.SearchTracks(ctx, models.SearchQuery{Query: "a"})
		if len(mr.Keys()) != 0 {
			t.Errorf("expected nothing cached, got %v", mr.Keys())
		}
	})

	t.Run("Track Hit And Miss", func(t *testing.T) {
		_, client := setupCache(t)
		mock := &tu.MockCatalog{Tracks: map[string]models.MusicTrack{"1": track}}
		c := NewCachedCatalog(mock, client, time.Minute, nil)

		for range 2 {
			got, err := c.GetTrack(ctx, "1")
			if err != nil || got == nil || got.ID != "1" {
				t.Fatalf("unexpected result: %v, %v", got, err)
			}
		}
		if mock.Lookups != 1 {
			t.Errorf("expected one upstream lookup, got %d", mock.Lookups)
		}

		for range 2 {
			if got, _ := c.GetTrack(ctx, "404"); got != nil {
				t.Errorf("expected nil for unknown track, got %+v", got)
			}
		}
		if mock.Lookups != 3 {
			t.Errorf("expected missing tracks not to be cached, got %d lookups", mock.Lookups)
		}
	})

	t.Run("Redis Down Falls Through", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("failed to start miniredis: %v", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		mock := &tu.MockCatalog{Results: []models.MusicTrack{track}}
		c := NewCachedCatalog(mock, client, time.Minute, nil)

		res, err := c.SearchTracks(ctx, models.SearchQuery{Query: "daft"})
		if err != nil {
			t.Fatalf("expected fallthrough on cache failure, got %v", err)
		}
		if len(res.Tracks) != 1 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		mr, client := setupCache(t)
		mock := &tu.MockCatalog{Results: []models.MusicTrack{track}, Tracks: map[string]models.MusicTrack{"1": track}}
		c := NewCachedCatalog(mock, client, time.Minute, nil)

		if _, err := c.SearchTracks(ctx, models.SearchQuery{Query: "daft", Limit: 5}); err != nil {
			t.Fatal(err)
		}
		if _, err := c.GetTrack(ctx, "1"); err != nil {
			t.Fatal(err)
		}
		mr.Set("session:abc", "keep")

		n, err := c.Purge(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 keys removed, got %d", n)
		}
		if !mr.Exists("session:abc") {
			t.Error("expected unrelated key to survive")
		}
		if mr.Exists(TrackKey("1")) {
			t.Error("expected track entry to be removed")
		}
	})

	t.Run("NewRedisClient", func(t *testing.T) {
		mr, _ := setupCache(t)
		client, err := NewRedisClient(ctx, "redis://"+mr.Addr()+"/0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		client.Close()

		if _, err := NewRedisClient(ctx, "not a url"); err == nil {
			t.Error("expected error for invalid url")
		}
	})
}
