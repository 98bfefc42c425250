// Package notify publishes pass outcomes to NATS so external consumers
// (deployment hooks, dashboards) can react to builds without polling.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/conveyor/internal/events"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

// PassMessage is the wire payload published per completed pass.
type PassMessage struct {
	PassID    string        `json:"pass_id"`
	Succeeded bool          `json:"succeeded"`
	Canceled  bool          `json:"canceled"`
	Duration  time.Duration `json:"duration_ns"`
	Documents int           `json:"documents"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}

// Notifier forwards PassCompleted events from the bus to a NATS subject.
type Notifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNotifier connects to NATS. The connection reconnects automatically;
// a publish during an outage is dropped, which is acceptable for
// notification traffic.
func NewNotifier(url, subject string, logger *slog.Logger) (*Notifier, error) {
	if subject == "" {
		return nil, ferrors.ConfigError("notify subject must not be empty").Build()
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "connect to NATS").
			WithContext("url", url).
			Build()
	}

	logger.Info("pass notifier connected",
		slog.String("url", url),
		slog.String("subject", subject))

	return &Notifier{conn: conn, subject: subject, logger: logger}, nil
}

// Run consumes PassCompleted events from the bus until ctx is canceled or
// the bus closes.
func (n *Notifier) Run(ctx context.Context, bus *events.Bus) error {
	ch, unsub := events.Subscribe[events.PassCompleted](bus, 16)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := n.Publish(evt); err != nil {
				n.logger.Warn("pass notification failed", slog.Any("error", err))
			}
		}
	}
}

// Publish sends one pass outcome.
func (n *Notifier) Publish(evt events.PassCompleted) error {
	msg := PassMessage{
		PassID:    evt.PassID,
		Succeeded: evt.Succeeded,
		Canceled:  evt.Canceled,
		Duration:  evt.Duration,
		Documents: evt.Documents,
		At:        time.Now(),
	}
	if evt.Err != nil {
		msg.Error = evt.Err.Error()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal pass message").Build()
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "publish pass message").
			WithContext("subject", n.subject).
			Build()
	}

	n.logger.Debug("published pass notification",
		slog.String("pass_id", evt.PassID),
		slog.Bool("succeeded", evt.Succeeded))
	return nil
}

// Close drains and closes the NATS connection.
func (n *Notifier) Close() {
	if n.conn != nil {
		_ = n.conn.Drain()
	}
}
