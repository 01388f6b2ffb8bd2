// Package slot implements one upload role of the studio: its accepted file, its error
// text and the transient drag highlight.
package slot

import (
	"context"
	"errors"
	"sync"

	"adaptstudio/internal/core"
	"adaptstudio/internal/intake"
)

// ErrSuperseded is returned by Accept when a later Accept or Clear on the same slot
// started before this one finished. The superseded result is dropped.
var ErrSuperseded = errors.New("upload superseded by a newer action on the slot")

// Processor turns a raw upload into an encoded file.
type Processor interface {
	Process(ctx context.Context, raw intake.RawFile) (*core.UploadedFile, error)
}

// Releaser frees preview references.
type Releaser interface {
	Release(ref string) bool
}

// Definition is the static description of a slot.
type Definition struct {
	Role     core.SlotRole
	Label    string
	SubLabel string
	// Required is advisory; the slot never enforces it.
	Required bool
}

// Definitions returns the three studio slots in display order.
func Definitions() []Definition {
	return []Definition{
		{Role: core.SlotReference, Label: "1. Reference Ad", SubLabel: "The 'Winning' ad to adapt", Required: true},
		{Role: core.SlotProduct, Label: "2. Your Product", SubLabel: "High quality product shot", Required: true},
		{Role: core.SlotLogo, Label: "3. Brand Logo", SubLabel: "Transparent PNG recommended"},
	}
}

// ViewState is presentation-only state that never travels with the file.
type ViewState struct {
	Dragging bool `json:"dragging"`
}

// Slot holds at most one accepted file.
type Slot struct {
	def       Definition
	processor Processor
	previews  Releaser

	mu     sync.Mutex
	file   *core.UploadedFile
	errMsg string
	view   ViewState
	seq    uint64
}

// New creates an empty slot.
func New(def Definition, processor Processor, previews Releaser) *Slot {
	return &Slot{
		def:       def,
		processor: processor,
		previews:  previews,
	}
}

// Role returns the slot's role.
func (s *Slot) Role() core.SlotRole {
	return s.def.Role
}

// Required reports whether the studio needs this slot populated before generating.
func (s *Slot) Required() bool {
	return s.def.Required
}

// Accept runs intake on raw. Picker selection and drop both end up here.
//
// On failure the error text is stored and any previously accepted file is kept. On
// success the new file replaces the old one, whose preview is released.
func (s *Slot) Accept(ctx context.Context, raw intake.RawFile) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.errMsg = ""
	s.view.Dragging = false
	s.mu.Unlock()

	file, err := s.processor.Process(ctx, raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		if file != nil {
			s.previews.Release(file.PreviewURL)
		}
		return ErrSuperseded
	}
	if err != nil {
		s.errMsg = core.UserMessage(err)
		return err
	}

	old := s.file
	s.file = file
	if old != nil {
		s.previews.Release(old.PreviewURL)
	}
	return nil
}

// Reject records err for an upload that never reached intake, such as a request body
// over the server limit. The current file is kept.
func (s *Slot) Reject(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errMsg = core.UserMessage(err)
	s.view.Dragging = false
}

// Clear empties the slot, releases its preview and resets the error text.
// An Accept still in flight is superseded.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.file != nil {
		s.previews.Release(s.file.PreviewURL)
		s.file = nil
	}
	s.errMsg = ""
}

// DragOver turns on the drag highlight.
func (s *Slot) DragOver() {
	s.setDragging(true)
}

// DragLeave turns off the drag highlight.
func (s *Slot) DragLeave() {
	s.setDragging(false)
}

func (s *Slot) setDragging(v bool) {
	s.mu.Lock()
	s.view.Dragging = v
	s.mu.Unlock()
}

// File returns the accepted file, or nil.
func (s *Slot) File() *core.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file
}

// Populated reports whether a file is held.
func (s *Slot) Populated() bool {
	return s.File() != nil
}

// Error returns the last intake error text, or "".
func (s *Slot) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// View returns the drag view-state.
func (s *Slot) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Snapshot is a consistent read of a slot for rendering.
type Snapshot struct {
	Role     core.SlotRole      `json:"role"`
	Label    string             `json:"label"`
	SubLabel string             `json:"sub_label"`
	Required bool               `json:"required"`
	File     *core.UploadedFile `json:"file,omitempty"`
	SizeKB   int64              `json:"size_kb,omitempty"`
	Error    string             `json:"error,omitempty"`
	View     ViewState          `json:"view"`
}

// Snapshot returns the slot's current state under a single lock.
func (s *Slot) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Role:     s.def.Role,
		Label:    s.def.Label,
		SubLabel: s.def.SubLabel,
		Required: s.def.Required,
		File:     s.file,
		Error:    s.errMsg,
		View:     s.view,
	}
	if s.file != nil {
		snap.SizeKB = (s.file.Raw.Size + 512) / 1024
	}
	return snap
}
