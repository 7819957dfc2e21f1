package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

// Listener subscribes to a NOTIFY channel and forwards each payload as a
// change signal. Payloads use the "kind" or "kind:param" form.
type Listener struct {
	pool     *pgxpool.Pool
	channel  string
	notifier core.Notifier
	logger   *slog.Logger

	newBackOff func() backoff.BackOff
}

// NewListener creates a listener for channel.
func NewListener(pool *pgxpool.Pool, channel string, notifier core.Notifier, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		pool:       pool,
		channel:    channel,
		notifier:   notifier,
		logger:     logger,
		newBackOff: newReconnectBackOff,
	}
}

func newReconnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.2
	b.InitialInterval = 250 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // never stop
	b.Reset()
	return b
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
func (l *Listener) Run(ctx context.Context) error {
	b := l.newBackOff()

	err := backoff.RetryNotify(
		func() error {
			err := l.listen(ctx, b.Reset)
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			l.logger.Warn("notification listener disconnected, retrying",
				"channel", l.channel,
				"error", err,
				"retry_in", wait,
			)
		},
	)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// listen holds one dedicated connection for the LISTEN session. connected is
// called once the subscription is active.
func (l *Listener) listen(ctx context.Context, connected func()) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	// The session's LISTEN state must not leak back into the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	connected()
	l.logger.Info("listening for change notifications", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.dispatch(ctx, n.Payload)
	}
}

func (l *Listener) dispatch(ctx context.Context, payload string) {
	sig, err := core.ParseSignal(payload)
	if err != nil {
		l.logger.Warn("ignoring notification", "channel", l.channel, "payload", payload, "error", err)
		return
	}
	if err := l.notifier.Notify(ctx, sig); err != nil {
		l.logger.Warn("failed to deliver change signal", "signal", sig.String(), "error", err)
	}
}
