// Package notify shows desktop notifications for daemon events such as a
// reload or a failed expansion.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall = busName + ".Notify"

	appName = "keydogger"

	// expireMillis is how long a notification stays up.
	expireMillis int32 = 4000

	// callTimeout bounds one round-trip to the notification server.
	callTimeout = 2 * time.Second
)

// ErrRateLimited is returned when notifications arrive faster than the
// limiter allows. The notification is dropped.
var ErrRateLimited = errors.New("notify: rate limited")

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(summary, body string) error
	Close() error
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(string, string) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBus sends notifications through org.freedesktop.Notifications on the
// session bus. Successive notifications replace each other.
type DBus struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	obj     caller
	lastID  uint32
	limiter *RateLimiter
}

// NewDBus connects to the session bus.
func NewDBus() (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBus{
		conn:    conn,
		obj:     conn.Object(busName, objectPath),
		limiter: NewRateLimiter(0.2, 3),
	}, nil
}

// Notify shows summary and body. The previous keydogger notification, if
// still visible, is replaced.
func (d *DBus) Notify(summary, body string) error {
	if !d.limiter.Allow() {
		return ErrRateLimited
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	call := d.obj.CallWithContext(ctx, notifyCall, 0,
		appName,
		d.lastID,
		"input-keyboard",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireMillis,
	)
	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	d.lastID = id
	return nil
}

// Close releases the bus connection.
func (d *DBus) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// New returns a D-Bus notifier when enabled and reachable, and Nop
// otherwise. Under sudo the user's session bus is usually not visible to
// root; that case is logged and notifications are skipped.
func New(enabled bool, logger *slog.Logger) Notifier {
	if !enabled {
		return Nop{}
	}
	n, err := NewDBus()
	if err != nil {
		if logger != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
		}
		return Nop{}
	}
	return n
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	mu         sync.Mutex
	rate       float64
	burst      int
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter allows burst operations at once and rate per second after.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow consumes a token if one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens += now.Sub(r.lastRefill).Seconds() * r.rate
	if r.tokens > float64(r.burst) {
		r.tokens = float64(r.burst)
	}
	r.lastRefill = now

	if r.tokens >= 1.0 {
		r.tokens--
		return true
	}
	return false
}
