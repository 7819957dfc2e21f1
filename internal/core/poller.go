package core

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Poller is a cancellable repeating task with a bounded number of attempts.
// Starting a new episode always stops the previous ticker first, so at most
// one ticker is active at any time.
//
// Poller is not safe for concurrent use; the orchestrator loop owns it.
type Poller struct {
	clock       clockwork.Clock
	interval    time.Duration
	maxAttempts int

	ticker   clockwork.Ticker
	attempts int
}

// NewPoller creates an idle poller.
func NewPoller(clock clockwork.Clock, interval time.Duration, maxAttempts int) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Poller{clock: clock, interval: interval, maxAttempts: maxAttempts}
}

// Start begins a new polling episode.
func (p *Poller) Start() {
	p.Cancel()
	p.attempts = 0
	p.ticker = p.clock.NewTicker(p.interval)
}

// Cancel stops the current episode, if any.
func (p *Poller) Cancel() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

// Active reports whether an episode is running.
func (p *Poller) Active() bool {
	return p.ticker != nil
}

// C returns the tick channel of the current episode. It is nil when idle,
// which blocks forever in a select.
func (p *Poller) C() <-chan time.Time {
	if p.ticker == nil {
		return nil
	}
	return p.ticker.Chan()
}

// Tick records one attempt and reports whether it was the last one allowed.
func (p *Poller) Tick() (attempt int, last bool) {
	p.attempts++
	return p.attempts, p.attempts >= p.maxAttempts
}

// Attempts returns the number of attempts made in the current episode.
func (p *Poller) Attempts() int {
	return p.attempts
}
