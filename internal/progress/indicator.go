// Package progress drives the cosmetic loading phases shown while a generation runs.
// The phases are time based only; they say nothing about the real request.
package progress

import (
	"sync"
	"time"
)

// DefaultInterval is the time spent on each phase before advancing.
const DefaultInterval = 4 * time.Second

// Phases are the loading labels in display order.
var Phases = []string{
	"Analyzing reference composition...",
	"Matching lighting & perspective...",
	"Blending product into scene...",
	"Finalizing creative output...",
}

// Indicator advances through Phases on a ticker and halts on the last one.
type Indicator struct {
	interval time.Duration

	// ctl serializes Start and Stop
	ctl sync.Mutex

	mu      sync.Mutex
	phase   int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a stopped indicator. A non-positive interval uses DefaultInterval.
func New(interval time.Duration) *Indicator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Indicator{interval: interval}
}

// Start resets to the first phase and begins advancing. A running indicator is
// restarted.
func (i *Indicator) Start() {
	i.ctl.Lock()
	defer i.ctl.Unlock()

	i.stopLocked()

	i.mu.Lock()
	i.phase = 0
	i.running = true
	i.stop = make(chan struct{})
	i.done = make(chan struct{})
	stop, done := i.stop, i.done
	i.mu.Unlock()

	go i.run(stop, done)
}

func (i *Indicator) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			i.mu.Lock()
			if i.phase < len(Phases)-1 {
				i.phase++
			}
			last := i.phase == len(Phases)-1
			i.mu.Unlock()
			if last {
				// nothing left to advance; wait for Stop
				<-stop
				return
			}
		}
	}
}

// Stop cancels the ticker and waits for it to exit. The current phase is kept.
func (i *Indicator) Stop() {
	i.ctl.Lock()
	defer i.ctl.Unlock()
	i.stopLocked()
}

func (i *Indicator) stopLocked() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	stop, done := i.stop, i.done
	i.mu.Unlock()

	close(stop)
	<-done
}

// Phase returns the index of the active phase.
func (i *Indicator) Phase() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}

// Running reports whether the ticker is active.
func (i *Indicator) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}
