package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/soundpost/internal/shared"
)

// Relay is a CORS relay proxy. The target URL is appended to Prefix, query-escaped when Encode is set.
type Relay struct {
	Name   string
	Prefix string
	Encode bool
}

// URL returns the relay URL for target.
func (r Relay) URL(target string) string {
	if r.Encode {
		return r.Prefix + url.QueryEscape(target)
	}
	return r.Prefix + target
}

// DefaultRelays is the relay order used when none are configured.
var DefaultRelays = []Relay{
	{Name: "allorigins", Prefix: "https://api.allorigins.win/raw?url=", Encode: true},
	{Name: "corsproxy", Prefix: "https://corsproxy.io/?", Encode: true},
	{Name: "codetabs", Prefix: "https://api.codetabs.com/v1/proxy?quest=", Encode: false},
}

// DefaultTransientStatuses are the statuses that make the chain move on to the next relay.
var DefaultTransientStatuses = []int{http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable}

// RelayResponse is the final response from one relay.
type RelayResponse struct {
	Relay      string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *RelayResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RelayChain sends GET requests through an ordered list of relays.
type RelayChain struct {
	relays     []Relay
	transient  []int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// RelayChainOpts configures [NewRelayChain]. Zero values select the defaults.
type RelayChainOpts struct {
	Relays            []Relay
	TransientStatuses []int
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Logger            *log.Logger
}

// NewRelayChain creates a relay chain. A positive RequestsPerSecond paces outgoing attempts.
func NewRelayChain(opts RelayChainOpts) *RelayChain {
	c := &RelayChain{
		relays:     opts.Relays,
		transient:  opts.TransientStatuses,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
	if len(c.relays) == 0 {
		c.relays = DefaultRelays
	}
	if len(c.transient) == 0 {
		c.transient = DefaultTransientStatuses
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(io.Discard)
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Relays returns the configured relays in order.
func (c *RelayChain) Relays() []Relay {
	return slices.Clone(c.relays)
}

// Do fetches target through the first relay that gives a non-transient answer.
func (c *RelayChain) Do(ctx context.Context, target string) (*RelayResponse, error) {
	var errs []error

	for i, relay := range c.relays {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		c.logger.Debug("trying relay", "relay", relay.Name, "attempt", i+1, "of", len(c.relays))

		resp, err := c.fetch(ctx, relay, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("relay failed", "relay", relay.Name, "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %v", shared.ErrRelayFailure, relay.Name, err))
			continue
		}

		if slices.Contains(c.transient, resp.StatusCode) {
			c.logger.Warn("relay returned transient status", "relay", relay.Name, "status", resp.StatusCode)
			errs = append(errs, fmt.Errorf("%w: %s: status %d", shared.ErrRelayFailure, relay.Name, resp.StatusCode))
			continue
		}

		return resp, nil
	}

	return nil, errors.Join(append([]error{shared.ErrAllRelaysFailed}, errs...)...)
}

func (c *RelayChain) fetch(ctx context.Context, relay Relay, target string) (*RelayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relay.URL(target), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &RelayResponse{Relay: relay.Name, StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}
