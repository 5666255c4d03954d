// Package realtime delivers row changes published through Postgres notifications.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

// Notification channels installed by the schema triggers.
const (
	ChannelAppointments = "appointments_changes"
	ChannelReminders    = "reminders_changes"
)

var channels = map[string]bool{
	ChannelAppointments: true,
	ChannelReminders:    true,
}

// ErrUnknownChannel is returned when subscribing to a channel no trigger publishes to.
var ErrUnknownChannel = errors.New("unknown change channel")

// Conn is a dedicated connection that receives notifications.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// Dialer acquires a dedicated connection.
type Dialer func(ctx context.Context) (Conn, error)

type poolConn struct {
	*pgxpool.Conn
}

func (c poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.Conn.Conn().WaitForNotification(ctx)
}

// PoolDialer acquires connections from pool.
func PoolDialer(pool *pgxpool.Pool) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return poolConn{Conn: conn}, nil
	}
}

// Filter selects the changes delivered to a handler. A nil Filter accepts everything.
type Filter func(change model.Change) bool

// ClinicFilter accepts changes of a single clinic.
func ClinicFilter(clinicID string) Filter {
	return func(change model.Change) bool {
		return change.ClinicID == clinicID
	}
}

// Feed subscribes handlers to notification channels.
type Feed struct {
	dial    Dialer
	logger  *logger.Logger
	metrics *metrics.Metrics

	// reconnect bounds the backoff used to re-establish a dropped listener.
	reconnect func() backoff.BackOff
}

// NewFeed creates a Feed.
func NewFeed(dial Dialer, logger *logger.Logger, m *metrics.Metrics) *Feed {
	return &Feed{
		dial:    dial,
		logger:  logger,
		metrics: m,
		reconnect: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe stops delivery and waits for the listener to release its connection.
// It must not be called from the handler.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe starts listening on channel and calls handler for every change accepted by filter.
// The listener runs until ctx is done or the subscription is cancelled.
func (f *Feed) Subscribe(ctx context.Context, channel string, filter Filter, handler model.ChangeHandler) (model.Subscription, error) {
	if !channels[channel] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	conn, err := f.listen(ctx, channel)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		f.run(subCtx, channel, conn, filter, handler)
	}()

	return sub, nil
}

func (f *Feed) listen(ctx context.Context, channel string) (Conn, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	return conn, nil
}

func (f *Feed) run(ctx context.Context, channel string, conn Conn, filter Filter, handler model.ChangeHandler) {
	for {
		err := f.receive(ctx, conn, filter, handler)
		f.release(conn, channel)
		if ctx.Err() != nil {
			return
		}

		f.logger.Warn("Feed: listener dropped, reconnecting", "channel", channel, "error", err)
		conn, err = backoff.RetryNotifyWithData(func() (Conn, error) {
			return f.listen(ctx, channel)
		}, backoff.WithContext(f.reconnect(), ctx), func(err error, next time.Duration) {
			f.logger.Debug("Feed: reconnect failed", "channel", channel, "error", err, "retry_in", next)
		})
		if err != nil {
			return
		}
	}
}

func (f *Feed) receive(ctx context.Context, conn Conn, filter Filter, handler model.ChangeHandler) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		change, err := decode(n)
		if err != nil {
			f.logger.Warn("Feed: skipping malformed notification", "channel", n.Channel, "error", err)
			continue
		}
		if filter != nil && !filter(change) {
			continue
		}

		f.metrics.ObserveChange(change.Table)
		handler(change)
	}
}

func (f *Feed) release(conn Conn, channel string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		f.logger.Debug("Feed: unlisten failed", "channel", channel, "error", err)
	}
	conn.Release()
}

func decode(n *pgconn.Notification) (model.Change, error) {
	var change model.Change
	if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
		return model.Change{}, fmt.Errorf("failed to decode change: %w", err)
	}
	if change.Table == "" || change.ID == "" {
		return model.Change{}, errors.New("change without table or id")
	}
	return change, nil
}
