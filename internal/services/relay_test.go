package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/soundpost/internal/shared"
	tu "github.com/desertthunder/soundpost/internal/testing"
)

// relayServer answers every request with status and body, counting hits.
func relayServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelay(t *testing.T) {
	target := "https://api.deezer.com/search?q=daft punk&limit=25"

	t.Run("Encoded", func(t *testing.T) {
		r := Relay{Prefix: "https://api.allorigins.win/raw?url=", Encode: true}
		want := "https://api.allorigins.win/raw?url=" + url.QueryEscape(target)
		if got := r.URL(target); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	})

	t.Run("Raw", func(t *testing.T) {
		r := Relay{Prefix: "https://api.codetabs.com/v1/proxy?quest="}
		if got := r.URL(target); got != "https://api.codetabs.com/v1/proxy?quest="+target {
			t.Errorf("unexpected raw relay url: %s", got)
		}
	})
}

func TestRelayChain(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		c := NewRelayChain(RelayChainOpts{})
		relays := c.Relays()
		if len(relays) != 3 || relays[0].Name != "allorigins" || relays[2].Encode {
			t.Errorf("unexpected default relays: %+v", relays)
		}
	})

	t.Run("Network Failure Falls Through", func(t *testing.T) {
		var hits2, hits3 atomic.Int32
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		second := relayServer(t, http.StatusOK, `{"data":[],"total":0}`, &hits2)
		third := relayServer(t, http.StatusOK, `{}`, &hits3)

		c := NewRelayChain(RelayChainOpts{Relays: []Relay{
			{Name: "dead", Prefix: deadURL + "/?url=", Encode: true},
			{Name: "second", Prefix: second.URL + "/?url=", Encode: true},
			{Name: "third", Prefix: third.URL + "/?quest="},
		}})

		resp, err := c.Do(ctx, "https://api.deezer.com/genre")
		if err != nil {
			t.Fatalf("expected success via second relay, got %v", err)
		}
		if resp.Relay != "second" {
			t.Errorf("expected response from second relay, got %s", resp.Relay)
		}
		if hits3.Load() != 0 {
			t.Errorf("third relay should not be attempted, got %d hits", hits3.Load())
		}
	})

	t.Run("Transient Status Falls Through", func(t *testing.T) {
		var hits1, hits2 atomic.Int32
		first := relayServer(t, http.StatusBadGateway, "bad gateway", &hits1)
		second := relayServer(t, http.StatusOK, `{}`, &hits2)

		c := NewRelayChain(RelayChainOpts{Relays: []Relay{
			{Name: "first", Prefix: first.URL + "/?url=", Encode: true},
			{Name: "second", Prefix: second.URL + "/?url=", Encode: true},
		}})

		resp, err := c.Do(ctx, "https://api.deezer.com/genre")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Relay != "second" || hits1.Load() != 1 {
			t.Errorf("expected fallthrough to second relay, got %s", resp.Relay)
		}
	})

	t.Run("Non Transient Status Is Final", func(t *testing.T) {
		var hits1, hits2 atomic.Int32
		first := relayServer(t, http.StatusForbidden, `{"error":"quota"}`, &hits1)
		second := relayServer(t, http.StatusOK, `{}`, &hits2)

		c := NewRelayChain(RelayChainOpts{Relays: []Relay{
			{Name: "first", Prefix: first.URL + "/?url=", Encode: true},
			{Name: "second", Prefix: second.URL + "/?url=", Encode: true},
		}})

		resp, err := c.Do(ctx, "https://api.deezer.com/genre")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusForbidden || hits2.Load() != 0 {
			t.Errorf("expected 403 from first relay as final, got %d (second hits %d)", resp.StatusCode, hits2.Load())
		}
	})

	t.Run("Custom Transient Statuses", func(t *testing.T) {
		var hits1, hits2 atomic.Int32
		first := relayServer(t, http.StatusTooManyRequests, "", &hits1)
		second := relayServer(t, http.StatusOK, `{}`, &hits2)

		c := NewRelayChain(RelayChainOpts{
			Relays: []Relay{
				{Name: "first", Prefix: first.URL + "/?url=", Encode: true},
				{Name: "second", Prefix: second.URL + "/?url=", Encode: true},
			},
			TransientStatuses: []int{http.StatusTooManyRequests},
		})

		resp, err := c.Do(ctx, "https://api.deezer.com/genre")
		if err != nil || resp.Relay != "second" {
			t.Errorf("expected 429 to be treated as transient, got %v %v", resp, err)
		}
	})

	t.Run("All Relays Failed", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		c := NewRelayChain(RelayChainOpts{HTTPClient: client})

		_, err := c.Do(ctx, "https://api.deezer.com/genre")
		if !errors.Is(err, shared.ErrAllRelaysFailed) {
			t.Errorf("expected ErrAllRelaysFailed, got %v", err)
		}
		if !errors.Is(err, shared.ErrRelayFailure) {
			t.Errorf("expected per-relay errors to be joined, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		c := NewRelayChain(RelayChainOpts{RequestsPerSecond: 1})
		if _, err := c.Do(cctx, "https://api.deezer.com/genre"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
