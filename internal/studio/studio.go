// Package studio ties the upload slots, the prompt and the generation machine of one
// browser session together.
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"adaptstudio/internal/core"
	"adaptstudio/internal/generation"
	"adaptstudio/internal/intake"
	"adaptstudio/internal/presentation"
	"adaptstudio/internal/preview"
	"adaptstudio/internal/progress"
	"adaptstudio/internal/prompt"
	"adaptstudio/internal/slot"
)

// UploadObserver is notified of every upload attempt.
type UploadObserver interface {
	ObserveUpload(role core.SlotRole, size int64, err error)
}

// Options configures a Studio.
type Options struct {
	Generator core.ImageGenerator
	Previews  *preview.Store
	// ProgressInterval is the loading phase duration; zero uses progress.DefaultInterval.
	ProgressInterval time.Duration
	// Uploads is optional.
	Uploads UploadObserver
}

// Studio is the state of one session.
type Studio struct {
	slots     map[core.SlotRole]*slot.Slot
	machine   *generation.Machine
	indicator *progress.Indicator
	uploads   UploadObserver

	mu     sync.Mutex
	prompt string

	closeOnce sync.Once
}

// New creates a studio with empty slots in the Idle state.
func New(opts Options) *Studio {
	previews := opts.Previews
	if previews == nil {
		previews = preview.NewStore("")
	}
	processor := intake.NewProcessor(previews)

	s := &Studio{
		slots:     make(map[core.SlotRole]*slot.Slot, len(core.SlotRoles)),
		machine:   generation.NewMachine(opts.Generator),
		indicator: progress.New(opts.ProgressInterval),
		uploads:   opts.Uploads,
	}
	for _, def := range slot.Definitions() {
		s.slots[def.Role] = slot.New(def, processor, previews)
	}

	s.machine.Observe(func(from, to core.GenerationState) {
		switch {
		case to.Status == core.StatusLoading:
			s.indicator.Start()
		case from.Status == core.StatusLoading:
			s.indicator.Stop()
		}
	})
	return s
}

func (s *Studio) slot(role core.SlotRole) (*slot.Slot, error) {
	sl, ok := s.slots[role]
	if !ok {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("unknown slot %q", role), nil)
	}
	return sl, nil
}

// Upload hands raw to the slot for role. Picker and drop uploads are the same call.
func (s *Studio) Upload(ctx context.Context, role core.SlotRole, raw intake.RawFile) (slot.Snapshot, error) {
	sl, err := s.slot(role)
	if err != nil {
		return slot.Snapshot{}, err
	}
	err = sl.Accept(ctx, raw)
	if s.uploads != nil && !errors.Is(err, slot.ErrSuperseded) {
		s.uploads.ObserveUpload(role, raw.Size, err)
	}
	return sl.Snapshot(), err
}

// RejectUpload reports err on the slot for role without running intake.
func (s *Studio) RejectUpload(role core.SlotRole, size int64, err error) (slot.Snapshot, error) {
	sl, lookupErr := s.slot(role)
	if lookupErr != nil {
		return slot.Snapshot{}, lookupErr
	}
	sl.Reject(err)
	if s.uploads != nil {
		s.uploads.ObserveUpload(role, size, err)
	}
	return sl.Snapshot(), nil
}

// Clear empties the slot for role.
func (s *Studio) Clear(role core.SlotRole) (slot.Snapshot, error) {
	sl, err := s.slot(role)
	if err != nil {
		return slot.Snapshot{}, err
	}
	sl.Clear()
	return sl.Snapshot(), nil
}

// SetDragging toggles the drag highlight of the slot for role.
func (s *Studio) SetDragging(role core.SlotRole, active bool) (slot.Snapshot, error) {
	sl, err := s.slot(role)
	if err != nil {
		return slot.Snapshot{}, err
	}
	if active {
		sl.DragOver()
	} else {
		sl.DragLeave()
	}
	return sl.Snapshot(), nil
}

// SetPrompt stores the user's free-text instruction as typed.
func (s *Studio) SetPrompt(p string) {
	s.mu.Lock()
	s.prompt = p
	s.mu.Unlock()
}

// Prompt returns the stored instruction as typed.
func (s *Studio) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

func (s *Studio) inputs() prompt.Inputs {
	return prompt.Inputs{
		Product:   s.slots[core.SlotProduct].File(),
		Reference: s.slots[core.SlotReference].File(),
		Logo:      s.slots[core.SlotLogo].File(),
		Prompt:    s.Prompt(),
	}
}

// HasPreview reports whether ref is the preview of a file held by one of the slots.
func (s *Studio) HasPreview(ref string) bool {
	for _, sl := range s.slots {
		if f := sl.File(); f != nil && f.PreviewURL == ref {
			return true
		}
	}
	return false
}

// CanGenerate reports whether the generate control is enabled.
func (s *Studio) CanGenerate() bool {
	return s.machine.CanTrigger(s.inputs())
}

// Generate runs one attempt with the current slot contents and prompt and blocks
// until it resolves. See generation.Machine.Run for the error contract.
func (s *Studio) Generate(ctx context.Context) (core.GenerationState, error) {
	return s.machine.Run(ctx, s.inputs())
}

// State returns the generation state.
func (s *Studio) State() core.GenerationState {
	return s.machine.State()
}

// Snapshot is everything the UI renders for a session.
type Snapshot struct {
	Slots       []slot.Snapshot      `json:"slots"`
	Prompt      string               `json:"prompt"`
	CanGenerate bool                 `json:"can_generate"`
	State       core.GenerationState `json:"state"`
	View        presentation.View    `json:"view"`
}

// Snapshot returns the current state of the session.
func (s *Studio) Snapshot() Snapshot {
	snap := Snapshot{
		Slots:       make([]slot.Snapshot, 0, len(core.SlotRoles)),
		Prompt:      s.Prompt(),
		CanGenerate: s.CanGenerate(),
		State:       s.machine.State(),
	}
	for _, role := range core.SlotRoles {
		snap.Slots = append(snap.Slots, s.slots[role].Snapshot())
	}
	snap.View = presentation.Render(snap.State, s.indicator.Phase())
	return snap
}

// Close stops the progress ticker, discards any in-flight attempt and releases every
// preview held by the slots. Safe to call more than once.
func (s *Studio) Close() {
	s.closeOnce.Do(func() {
		s.machine.Close()
		s.indicator.Stop()
		for _, sl := range s.slots {
			sl.Clear()
		}
	})
}
