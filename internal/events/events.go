// Package events mirrors dispatched actions onto NATS so other processes can follow a session.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/desertthunder/soundpost/internal/flux"
	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// DefaultSubjectPrefix is used when the config leaves events.subject_prefix empty.
const DefaultSubjectPrefix = "soundpost.actions"

// Publisher is the part of [nats.Conn] the mirror needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the message published for each action.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Mirror publishes every action it receives from a dispatcher.
type Mirror struct {
	pub    Publisher
	prefix string
	logger *log.Logger
	now    func() time.Time
}

// NewMirror creates a mirror publishing under prefix.
func NewMirror(pub Publisher, prefix string, logger *log.Logger) *Mirror {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Mirror{pub: pub, prefix: prefix, logger: shared.WithLogger(logger, "component", "events"), now: time.Now}
}

// Subject returns the subject an action type is published on.
func (m *Mirror) Subject(t flux.ActionType) string {
	return m.prefix + "." + strings.ToLower(string(t))
}

// Attach registers the mirror with d.
func (m *Mirror) Attach(d *flux.Dispatcher) flux.DispatchToken {
	return d.Register(m.Handle)
}

// Handle publishes action. Publish failures are logged, never returned, so a broker outage
// does not surface as a dispatch failure.
func (m *Mirror) Handle(_ context.Context, action flux.Action) error {
	data, err := m.encode(action)
	if err != nil {
		m.logger.Warn("failed to encode action", "action", action.Type, "error", err)
		return nil
	}
	if err := m.pub.Publish(m.Subject(action.Type), data); err != nil {
		m.logger.Warn("failed to publish action", "action", action.Type, "error", err)
	}
	return nil
}

func (m *Mirror) encode(action flux.Action) ([]byte, error) {
	env := Envelope{Type: string(action.Type), Timestamp: shared.Timestamp(m.now())}

	payload := action.Payload
	if posts, ok := payload.([]models.Post); ok {
		payload = map[string]int{"count": len(posts)}
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses a published message.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("%w: envelope has no type", shared.ErrMalformedResponse)
	}
	return env, nil
}

// Connect dials the broker at url.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: events.nats_url is empty", shared.ErrMissingConfig)
	}
	nc, err := nats.Connect(url,
		nats.Name("soundpost"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// Watch calls handler for every action published under prefix until the subscription is drained.
func Watch(nc *nats.Conn, prefix string, handler func(subject string, env Envelope)) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return nc.Subscribe(prefix+".>", func(msg *nats.Msg) {
		env, err := Decode(msg.Data)
		if err != nil {
			return
		}
		handler(msg.Subject, env)
	})
}
