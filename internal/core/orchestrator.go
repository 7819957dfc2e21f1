package core

// orchestrator.go decides when the displayed table is recomputed.
//
// The host emits several independent change notifications, and after some of
// them (a parameter change still propagating upstream) the freshest data is
// not yet available. The orchestrator handles this with a small state machine:
//
//	Idle ──ParameterChanged──▶ DebounceWait ──delay──▶ Polling ──rows changed──▶ render ▶ Idle
//	  ▲                                                   │
//	  └────────────────────── attempts exhausted ◀────────┘
//
// Every other signal kind renders directly. All state lives in one goroutine
// (Run); signals and user operations arrive as events on a single FIFO channel,
// so no two renders, layouts or exports ever overlap.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JonMunkholm/tablemirror/internal/layout"
)

// Defaults applied to zero Options fields.
const (
	DefaultDebounceDelay  = time.Second
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultPollAttempts   = 10
	DefaultFetchTimeout   = 10 * time.Second
	DefaultContainerWidth = 1200

	eventBuffer = 64
)

// State is the orchestrator's refresh state.
type State string

const (
	StateIdle         State = "idle"
	StateDebounceWait State = "debounce_wait"
	StatePolling      State = "polling"
	StateRendering    State = "rendering"
)

// Options configures an Orchestrator.
type Options struct {
	Source   Source
	Renderer Renderer
	Engine   layout.Engine
	Clock    clockwork.Clock // Real clock if nil
	Logger   *slog.Logger    // slog.Default() if nil

	DebounceDelay  time.Duration
	PollInterval   time.Duration
	PollAttempts   int
	FetchTimeout   time.Duration
	ContainerWidth int
}

// Stats is a point-in-time view of the orchestrator for monitoring.
type Stats struct {
	State             State     `json:"state"`
	Renders           int64     `json:"renders"`
	Fetches           int64     `json:"fetches"`
	PollEpisodes      int64     `json:"pollEpisodes"`
	ExhaustedEpisodes int64     `json:"exhaustedEpisodes"`
	TransportErrors   int64     `json:"transportErrors"`
	CoalescedSignals  int64     `json:"coalescedSignals"`
	LastRowCount      int       `json:"lastRowCount"`
	LastRenderAt      time.Time `json:"lastRenderAt"`
}

// Orchestrator owns the Session and serializes every change to it.
type Orchestrator struct {
	opts   Options
	clock  clockwork.Clock
	logger *slog.Logger

	events chan event
	done   chan struct{}

	// Owned by the Run goroutine.
	session       *Session
	state         State
	debounce      clockwork.Timer
	poller        *Poller
	pendingRender bool

	statsMu sync.Mutex
	stats   Stats
}

type event struct {
	signal ChangeSignal
	op     func() error
	reply  chan error
}

// NewOrchestrator creates an orchestrator. Call Run to start it.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.ContainerWidth <= 0 {
		opts.ContainerWidth = DefaultContainerWidth
	}

	return &Orchestrator{
		opts:    opts,
		clock:   opts.Clock,
		logger:  opts.Logger.With("component", "refresh"),
		events:  make(chan event, eventBuffer),
		done:    make(chan struct{}),
		session: NewSession(opts.ContainerWidth),
		state:   StateIdle,
		poller:  NewPoller(opts.Clock, opts.PollInterval, opts.PollAttempts),
		stats:   Stats{State: StateIdle},
	}
}

// Run renders the initial snapshot and then processes signals and operations
// until ctx is cancelled. It must be called exactly once.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	defer o.stopTimers()

	o.logger.Info("refresh orchestrator started",
		"debounce", o.opts.DebounceDelay,
		"poll_interval", o.opts.PollInterval,
		"poll_attempts", o.opts.PollAttempts,
	)

	o.renderFresh(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("refresh orchestrator stopped")
			return ctx.Err()

		case ev := <-o.events:
			o.handle(ctx, ev)

		case <-o.debounceC():
			o.debounce = nil
			o.poller.Start()
			o.setState(StatePolling)
			o.bump(func(s *Stats) { s.PollEpisodes++ })
			o.logger.Debug("debounce elapsed, polling for new rows")

		case <-o.poller.C():
			o.pollOnce(ctx)
		}

		// Render once the queue is drained so a burst of direct signals
		// collapses into one render.
		if o.pendingRender && len(o.events) == 0 {
			o.flushRender(ctx)
		}
	}
}

// Notify delivers a change signal to the loop.
func (o *Orchestrator) Notify(ctx context.Context, sig ChangeSignal) error {
	select {
	case o.events <- event{signal: sig}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// Refresh requests an immediate re-fetch and render.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	return o.Notify(ctx, ChangeSignal{Kind: ManualRefresh})
}

// Do runs fn on the loop with exclusive access to the session. Pending renders
// are flushed first, so fn observes every signal delivered before it. Once fn
// is queued it runs to completion even if ctx is cancelled.
func (o *Orchestrator) Do(ctx context.Context, fn func(*Session) error) error {
	return o.submit(ctx, func() error { return fn(o.session) })
}

// Rename sets or clears the display name of a column and repaints.
func (o *Orchestrator) Rename(ctx context.Context, index int, name string) error {
	return o.submit(ctx, func() error {
		s := o.session
		if !s.Model.Rename(index, name) {
			return ErrColumnOutOfRange
		}
		s.Layout = o.opts.Engine.Refit(s.Layout, index, s.Model.DisplayName(index), s.Model.DisplayCells())
		o.paint()
		return nil
	})
}

// Resize pins a column to a user-chosen width and repaints.
func (o *Orchestrator) Resize(ctx context.Context, index, width int) error {
	return o.submit(ctx, func() error {
		s := o.session
		l, ok := o.opts.Engine.Resize(s.Layout, index, width)
		if !ok {
			return ErrColumnOutOfRange
		}
		s.Layout = l
		o.paint()
		return nil
	})
}

// SetContainerWidth adapts the layout to the UI shell's container and repaints.
func (o *Orchestrator) SetContainerWidth(ctx context.Context, width int) error {
	return o.submit(ctx, func() error {
		s := o.session
		s.ContainerWidth = width
		s.Layout = o.opts.Engine.Relayout(s.Layout, width)
		if s.Rendered {
			o.paint()
		}
		return nil
	})
}

// Stats returns a snapshot of the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}

// State returns the current refresh state.
func (o *Orchestrator) State() State {
	return o.Stats().State
}

func (o *Orchestrator) submit(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case o.events <- event{op: fn, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-o.done:
		return ErrStopped
	}
}

// handle dispatches one event. Signals are matched in a single switch.
func (o *Orchestrator) handle(ctx context.Context, ev event) {
	if ev.op != nil {
		if o.pendingRender {
			o.flushRender(ctx)
		}
		ev.reply <- ev.op()
		return
	}

	sig := ev.signal
	o.logger.Debug("change signal", "signal", sig.String(), "debounced", sig.Debounced(), "state", o.state)

	switch sig.Kind {
	case ParameterChanged:
		if o.state == StateDebounceWait {
			o.bump(func(s *Stats) { s.CoalescedSignals++ })
			return
		}
		o.poller.Cancel()
		o.debounce = o.clock.NewTimer(o.opts.DebounceDelay)
		o.setState(StateDebounceWait)

	case FilterChanged, DataSourceChanged, SummaryDataChanged, ManualRefresh:
		o.stopTimers()
		o.setState(StateIdle)
		if o.pendingRender {
			o.bump(func(s *Stats) { s.CoalescedSignals++ })
		}
		o.pendingRender = true

	default:
		o.logger.Warn("ignoring unknown change signal", "signal", sig.String())
	}
}

func (o *Orchestrator) flushRender(ctx context.Context) {
	o.pendingRender = false
	o.renderFresh(ctx, "direct")
}

// renderFresh fetches a snapshot and renders it unconditionally.
func (o *Orchestrator) renderFresh(ctx context.Context, reason string) {
	snap, err := o.fetch(ctx)
	if err != nil {
		o.logger.Error("snapshot fetch failed, skipping render", "reason", reason, "error", err)
		return
	}
	o.apply(snap)
}

// pollOnce runs one polling attempt.
func (o *Orchestrator) pollOnce(ctx context.Context) {
	attempt, last := o.poller.Tick()

	snap, err := o.fetch(ctx)
	switch {
	case err != nil:
		o.logger.Warn("poll fetch failed", "attempt", attempt, "error", err)
	case len(snap.Rows) != o.session.LastRowCount:
		o.logger.Debug("row count changed, rendering",
			"attempt", attempt,
			"previous_rows", o.session.LastRowCount,
			"rows", len(snap.Rows),
		)
		o.poller.Cancel()
		o.apply(snap)
		o.setState(StateIdle)
		return
	}

	if last {
		o.poller.Cancel()
		o.setState(StateIdle)
		o.bump(func(s *Stats) { s.ExhaustedEpisodes++ })
		o.logger.Info("polling exhausted without row count change",
			"attempts", attempt,
			"rows", o.session.LastRowCount,
		)
	}
}

func (o *Orchestrator) fetch(ctx context.Context) (Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	o.bump(func(s *Stats) { s.Fetches++ })
	snap, err := o.opts.Source.FetchSnapshot(fetchCtx)
	if err != nil {
		o.bump(func(s *Stats) { s.TransportErrors++ })
		return Snapshot{}, &TransportError{Op: "fetch snapshot", Err: err}
	}
	return snap, nil
}

// apply installs a snapshot, recomputes the layout from scratch and paints.
func (o *Orchestrator) apply(snap Snapshot) {
	prev := o.state
	o.setState(StateRendering)
	defer o.setState(prev)

	s := o.session
	s.Model.Replace(snap)
	s.LastRowCount = s.Model.RowCount()
	s.Layout = o.opts.Engine.Compute(s.ContainerWidth, s.Model.DisplayNames(), s.Model.DisplayCells())
	s.Rendered = true
	o.paint()

	now := o.clock.Now()
	o.bump(func(st *Stats) {
		st.Renders++
		st.LastRowCount = s.LastRowCount
		st.LastRenderAt = now
	})
}

// paint hands the current model to the renderer. The displayName function is
// only valid for the duration of the call.
func (o *Orchestrator) paint() {
	if o.opts.Renderer == nil {
		return
	}
	m := o.session.Model
	o.opts.Renderer.RenderTable(m.Columns(), m.DisplayName, m.Rows(), o.session.Layout)
}

func (o *Orchestrator) debounceC() <-chan time.Time {
	if o.debounce == nil {
		return nil
	}
	return o.debounce.Chan()
}

func (o *Orchestrator) stopTimers() {
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.poller.Cancel()
}

func (o *Orchestrator) setState(s State) {
	o.state = s
	o.bump(func(st *Stats) { st.State = s })
}

func (o *Orchestrator) bump(fn func(*Stats)) {
	o.statsMu.Lock()
	fn(&o.stats)
	o.statsMu.Unlock()
}
