// Package daemon runs the expansion loop: it reads the physical keyboard,
// feeds the matching engine and types expansions into the virtual keyboard.
//
// The loop is single-threaded. Everything else (hot reload, stats) talks to
// it through atomics, so the matching path takes no locks. History writes
// and notifications leave the loop through a bounded queue; the only place
// the loop waits is the input read.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keydogger/internal/expand"
	"keydogger/internal/keystroke"
	"keydogger/internal/notify"
	"keydogger/internal/store"
)

var (
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("daemon already running")

	// ErrEmptyReload is returned when a reload would replace a non-empty
	// trie with an empty one. The old trie stays in place.
	ErrEmptyReload = errors.New("reload produced no abbreviations")
)

// sideEffectQueue is how many history writes and notifications may wait
// for the background worker. Work beyond that is dropped.
const sideEffectQueue = 64

// HistoryRecorder stores fired expansions. *store.Store implements it.
type HistoryRecorder interface {
	RecordExpansion(e *store.Expansion) (int64, error)
}

// Options configures a Daemon.
type Options struct {
	// Source is the physical keyboard. Required.
	Source keystroke.Source

	// Sink is the virtual keyboard expansions are typed into. Required.
	Sink keystroke.Sink

	// Trie holds the abbreviations to match. Required.
	Trie *expand.Trie

	Logger   *slog.Logger
	History  HistoryRecorder
	Notifier notify.Notifier

	// SessionID tags history records with the daemon session.
	SessionID *int64

	// Now is the clock used for history timestamps.
	Now func() time.Time
}

// Stats are cumulative counters since New.
type Stats struct {
	StartedAt  time.Time `json:"started_at"`
	Events     uint64    `json:"events"`
	KeyPresses uint64    `json:"key_presses"`
	Expansions uint64    `json:"expansions"`
	Failures   uint64    `json:"failures"`
	Reloads    uint64    `json:"reloads"`
	Dropped    uint64    `json:"dropped"`
	Loaded     int       `json:"loaded"`
}

// Daemon owns the event loop.
type Daemon struct {
	opts   Options
	logger *slog.Logger
	engine *expand.Engine

	// current is the trie most recently installed; pending is a trie
	// waiting for the loop to pick it up.
	current atomic.Pointer[expand.Trie]
	pending atomic.Pointer[expand.Trie]

	running   atomic.Bool
	startedAt time.Time

	// tasks feeds the side-effect worker while Run is active. Only the
	// loop goroutine touches it.
	tasks chan func()

	events     atomic.Uint64
	presses    atomic.Uint64
	expansions atomic.Uint64
	failures   atomic.Uint64
	reloads    atomic.Uint64
	dropped    atomic.Uint64

	closeOnce sync.Once
}

// New validates opts and returns a daemon ready to Run.
func New(opts Options) (*Daemon, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("daemon: source is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("daemon: sink is required")
	}
	if opts.Trie == nil {
		return nil, fmt.Errorf("daemon: trie is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	d := &Daemon{
		opts:      opts,
		logger:    opts.Logger,
		engine:    expand.NewEngine(opts.Trie, expand.NewEmitter(opts.Sink)),
		startedAt: opts.Now(),
	}
	d.current.Store(opts.Trie)
	return d, nil
}

// Run reads events until the source reports io.EOF (returns nil), ctx is
// cancelled (returns ctx.Err()) or reading fails (returns an error
// wrapping keystroke.ErrSourceRead). The source is closed on return, after
// queued history writes and notifications have been delivered.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)
	defer d.closeSource()
	defer d.startWorker()()

	d.logger.Info("expansion loop started", "abbreviations", d.current.Load().Len())

	for {
		ev, err := d.opts.Source.ReadEvent(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				d.logger.Info("expansion loop stopped")
				return ctx.Err()
			case errors.Is(err, io.EOF):
				d.logger.Info("input source closed")
				return nil
			default:
				d.logger.Error("input source failed", "error", err)
				return err
			}
		}

		if t := d.pending.Swap(nil); t != nil {
			d.engine.SetTrie(t)
			d.logger.Debug("abbreviations swapped in", "abbreviations", t.Len())
		}

		d.handle(ev)
	}
}

func (d *Daemon) handle(ev keystroke.Event) {
	d.events.Add(1)
	if ev.IsKeyPress() {
		d.presses.Add(1)
	}

	m, ok, err := d.engine.HandleEvent(ev)
	if !ok {
		return
	}

	failed := err != nil
	if failed {
		d.failures.Add(1)
		d.logger.Error("expansion aborted",
			"abbreviation", m.Abbreviation,
			"erase", m.EraseCount,
			"error", err,
		)
		body := fmt.Sprintf("Expansion of %q failed", m.Abbreviation)
		d.enqueue(func() { d.notify(body) })
	} else {
		d.expansions.Add(1)
		d.logger.Debug("expanded",
			"abbreviation", m.Abbreviation,
			"erase", m.EraseCount,
			"emitted", len(m.Expansion),
		)
	}

	if d.opts.History != nil {
		rec := &store.Expansion{
			SessionID:    d.opts.SessionID,
			Abbreviation: m.Abbreviation,
			EraseCount:   m.EraseCount,
			EmittedCount: len(m.Expansion),
			At:           d.opts.Now(),
			Failed:       failed,
		}
		d.enqueue(func() { d.record(rec) })
	}
}

func (d *Daemon) record(rec *store.Expansion) {
	if _, err := d.opts.History.RecordExpansion(rec); err != nil {
		d.logger.Warn("history write failed", "error", err)
	}
}

// startWorker starts the goroutine running queued side effects and returns
// the function that drains and stops it.
func (d *Daemon) startWorker() func() {
	tasks := make(chan func(), sideEffectQueue)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for fn := range tasks {
			fn()
		}
	}()
	d.tasks = tasks

	return func() {
		d.tasks = nil
		close(tasks)
		<-done
	}
}

// enqueue hands fn to the worker without waiting. A full queue drops fn.
func (d *Daemon) enqueue(fn func()) {
	if d.tasks == nil {
		fn()
		return
	}
	select {
	case d.tasks <- fn:
	default:
		d.dropped.Add(1)
		d.logger.Debug("side-effect queue full, dropping")
	}
}

// SetTrie publishes t. The loop switches to it before the next event and
// restarts matching from the root.
func (d *Daemon) SetTrie(t *expand.Trie) {
	d.current.Store(t)
	d.pending.Store(t)
	d.reloads.Add(1)
}

// Trie returns the most recently installed trie.
func (d *Daemon) Trie() *expand.Trie {
	return d.current.Load()
}

// Replace publishes t unless it is empty while the current trie is not,
// in which case the current trie is kept and ErrEmptyReload is returned.
func (d *Daemon) Replace(t *expand.Trie) error {
	if t.Len() == 0 && d.current.Load().Len() > 0 {
		return ErrEmptyReload
	}
	d.SetTrie(t)
	return nil
}

// Stats returns a snapshot of the counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		StartedAt:  d.startedAt,
		Events:     d.events.Load(),
		KeyPresses: d.presses.Load(),
		Expansions: d.expansions.Load(),
		Failures:   d.failures.Load(),
		Reloads:    d.reloads.Load(),
		Dropped:    d.dropped.Load(),
		Loaded:     d.current.Load().Len(),
	}
}

func (d *Daemon) closeSource() {
	d.closeOnce.Do(func() {
		if err := d.opts.Source.Close(); err != nil {
			d.logger.Debug("close input source", "error", err)
		}
	})
}
