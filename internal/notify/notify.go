// Package notify publishes build events for downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// BuildEvent is the JSON document published after every build.
type BuildEvent struct {
	BuildID    string    `json:"build_id"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Commit     string    `json:"commit,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Pages      int       `json:"pages"`
	PlainFiles int       `json:"plain_files"`
	Changed    []string  `json:"changed,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, ev BuildEvent) error
	Close() error
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, BuildEvent) error { return nil }
func (Noop) Close() error                              { return nil }

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes events as JSON on a core NATS subject.
type NATS struct {
	conn    conn
	subject string
	policy  retry.Policy
}

// New returns the publisher cfg asks for: NATS when a URL is set, Noop
// otherwise.
func New(cfg config.NotifyConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Noop{}, nil
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("sitebuilder"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithContext(logfields.KeyURL, cfg.NATSURL).WithCause(err).Build()
	}
	slog.Info("NATS publisher connected", logfields.URL(cfg.NATSURL), slog.String("subject", cfg.Subject))
	return newNATS(nc, cfg.Subject), nil
}

func newNATS(c conn, subject string) *NATS {
	return &NATS{conn: c, subject: subject, policy: retry.NewPolicy(retry.BackoffExponential, 200*time.Millisecond, 2*time.Second, 2)}
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (n *NATS) Publish(ctx context.Context, ev BuildEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.InternalError("failed to marshal build event").WithCause(err).Build()
	}

	err = n.policy.Do(ctx, nil, func(ctx context.Context) error {
		if err := n.conn.Publish(n.subject, data); err != nil {
			return err
		}
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return n.conn.FlushWithContext(fctx)
	})
	if err != nil {
		return errors.NetworkError("failed to publish build event").
			WithContext("subject", n.subject).WithContext(logfields.KeyBuildID, ev.BuildID).WithCause(err).Build()
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", n.subject))
	return nil
}

// Close drops the connection.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
