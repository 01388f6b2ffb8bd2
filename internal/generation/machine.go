// Package generation holds the idle/loading/success/error state machine of one studio.
package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"adaptstudio/internal/core"
	"adaptstudio/internal/prompt"
)

var (
	// ErrNotReady rejects a trigger while the reference ad or product image is missing.
	ErrNotReady = errors.New("reference ad and product image are required")
	// ErrInFlight rejects a trigger while an attempt is loading.
	ErrInFlight = errors.New("a generation is already in progress")
	// ErrSuperseded is returned when the machine was closed before the attempt resolved.
	ErrSuperseded = errors.New("generation result discarded")
)

// Observer receives every transition, in order, outside the machine's lock.
type Observer func(from, to core.GenerationState)

// Machine serializes generation attempts against one generator.
type Machine struct {
	generator core.ImageGenerator

	// notifyMu is held from a state change until its observers return, so observers
	// see transitions in the order they happened. Observers must not call Run.
	notifyMu sync.Mutex

	mu        sync.Mutex
	state     core.GenerationState
	seq       uint64
	closed    bool
	observers []Observer
}

// NewMachine creates a machine in the Idle state.
func NewMachine(generator core.ImageGenerator) *Machine {
	return &Machine{
		generator: generator,
		state:     core.IdleState(),
	}
}

// Observe registers o for all later transitions.
func (m *Machine) Observe(o Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine) State() core.GenerationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CanTrigger reports whether Run would start an attempt for inputs in.
func (m *Machine) CanTrigger(in prompt.Inputs) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guard(in) == nil
}

func (m *Machine) guard(in prompt.Inputs) error {
	if m.closed {
		return ErrSuperseded
	}
	if in.Reference == nil || in.Product == nil {
		return ErrNotReady
	}
	if m.state.Status == core.StatusLoading {
		return ErrInFlight
	}
	return nil
}

// Run performs one attempt and blocks until the generator resolves. Any previous
// result is discarded as soon as the machine enters Loading. Generation failures are
// recorded in the Error state and are not returned; the returned error is only set
// when the trigger was rejected or the result was discarded.
func (m *Machine) Run(ctx context.Context, in prompt.Inputs) (core.GenerationState, error) {
	m.notifyMu.Lock()
	m.mu.Lock()
	if err := m.guard(in); err != nil {
		state := m.state
		m.mu.Unlock()
		m.notifyMu.Unlock()
		return state, err
	}
	m.seq++
	seq := m.seq
	from := m.state
	m.state = core.LoadingState()
	observers := m.observers
	m.mu.Unlock()

	notify(observers, from, core.LoadingState())
	m.notifyMu.Unlock()

	next := m.attempt(ctx, in)

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if seq != m.seq || m.closed {
		m.mu.Unlock()
		slog.Debug("discarding stale generation result", "seq", seq)
		return next, ErrSuperseded
	}
	m.state = next
	observers = m.observers
	m.mu.Unlock()

	notify(observers, core.LoadingState(), next)
	return next, nil
}

func (m *Machine) attempt(ctx context.Context, in prompt.Inputs) core.GenerationState {
	req, err := prompt.Build(in)
	if err != nil {
		return core.ErrorState(core.UserMessage(err))
	}
	result, err := m.generator.Generate(ctx, req)
	if err != nil {
		return core.ErrorState(core.UserMessage(err))
	}
	if result == nil {
		return core.ErrorState(core.MessageNoImage)
	}
	return core.SuccessState(result)
}

// Close discards any in-flight attempt and rejects later triggers.
func (m *Machine) Close() {
	m.mu.Lock()
	m.seq++
	m.closed = true
	m.mu.Unlock()
}

func notify(observers []Observer, from, to core.GenerationState) {
	for _, o := range observers {
		o(from, to)
	}
}
