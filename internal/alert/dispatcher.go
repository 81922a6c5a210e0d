// Package alert fans urgent mentions out to notification channels.
// Delivery is best-effort: failures are logged and counted but never reach
// the collection pipeline.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// Dispatcher sends one mention to every configured notifier. Each channel
// sits behind its own circuit breaker so a dead provider stops consuming
// time after a few consecutive failures.
type Dispatcher struct {
	notifiers []ports.Notifier
	breakers  map[string]*gobreaker.CircuitBreaker
	logger    *slog.Logger
}

var _ ports.AlertSink = (*Dispatcher)(nil)

// NewDispatcher wires notifiers; unconfigured ones are kept but skipped at
// dispatch time, so configuration can arrive later via tests.
func NewDispatcher(logger *slog.Logger, notifiers ...ports.Notifier) *Dispatcher {
	d := &Dispatcher{
		notifiers: notifiers,
		breakers:  make(map[string]*gobreaker.CircuitBreaker, len(notifiers)),
		logger:    logger,
	}

	for _, n := range notifiers {
		d.breakers[n.Name()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    n.Name(),
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}

	return d
}

// Dispatch delivers the mention to every configured channel. Absent
// configuration is a silent no-op; delivery errors are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, m domain.Mention) {
	for _, n := range d.notifiers {
		if !n.Configured() {
			continue
		}

		_, err := d.breakers[n.Name()].Execute(func() (any, error) {
			return nil, n.Notify(ctx, m)
		})
		if err != nil {
			d.warn("alert delivery failed", "channel", n.Name(), "mention", m.ID, "error", err)
			continue
		}

		d.debug("alert delivered", "channel", n.Name(), "mention", m.ID)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
