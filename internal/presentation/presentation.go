// Package presentation turns a generation state into what the result panel shows.
package presentation

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"adaptstudio/internal/core"
	"adaptstudio/internal/progress"
)

// Action is a control offered on the result panel.
type Action string

const (
	ActionDownload Action = "download"
	ActionOpen     Action = "open"
)

// Phase display statuses.
const (
	PhaseDone    = "done"
	PhaseActive  = "active"
	PhasePending = "pending"
)

const (
	idleHeadline    = "Ready to Create"
	idleMessage     = "Upload your reference ad and product image, then click Generate to see the AI magic happen here."
	loadingHeadline = "Designing your creative..."
	loadingHint     = "This usually takes 10-20 seconds"
	errorHeadline   = "Generation Failed"
	imageAlt        = "Generated Creative"
)

// PhaseView is one line of the loading checklist.
type PhaseView struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

// View is the render model of the result panel.
type View struct {
	Status   core.GenerationStatus `json:"status"`
	Headline string                `json:"headline,omitempty"`
	Message  string                `json:"message,omitempty"`
	Hint     string                `json:"hint,omitempty"`
	ImageURL string                `json:"image_url,omitempty"`
	ImageAlt string                `json:"image_alt,omitempty"`
	Phases   []PhaseView           `json:"phases,omitempty"`
	Actions  []Action              `json:"actions,omitempty"`
}

// Render builds the view for state. phase is the active loading phase and is only
// used while loading.
func Render(state core.GenerationState, phase int) View {
	v := View{Status: state.Status}

	switch state.Status {
	case core.StatusLoading:
		v.Headline = loadingHeadline
		v.Hint = loadingHint
		v.Phases = renderPhases(phase)
	case core.StatusSuccess:
		if state.Result != nil {
			v.ImageURL = state.Result.DataURL()
			v.ImageAlt = imageAlt
			v.Actions = []Action{ActionOpen, ActionDownload}
		}
	case core.StatusError:
		v.Headline = errorHeadline
		v.Message = state.ErrorMessage
		if v.Message == "" {
			v.Message = core.MessageUnexpectedError
		}
	default:
		v.Status = core.StatusIdle
		v.Headline = idleHeadline
		v.Message = idleMessage
	}
	return v
}

func renderPhases(active int) []PhaseView {
	if active < 0 {
		active = 0
	}
	if active >= len(progress.Phases) {
		active = len(progress.Phases) - 1
	}
	out := make([]PhaseView, len(progress.Phases))
	for i, label := range progress.Phases {
		status := PhasePending
		switch {
		case i < active:
			status = PhaseDone
		case i == active:
			status = PhaseActive
		}
		out[i] = PhaseView{Label: label, Status: status}
	}
	return out
}

// DownloadFilename names a downloaded creative after the moment of the download.
func DownloadFilename(t time.Time) string {
	return fmt.Sprintf("adapt-creative-%d.png", t.UnixMilli())
}

// Download returns the exact image bytes of a success state.
func Download(state core.GenerationState) (*core.ResultImage, error) {
	if state.Status != core.StatusSuccess || state.Result == nil {
		return nil, core.NewNotFoundError("no generated creative to download")
	}
	return state.Result, nil
}

var viewerTemplate = template.Must(template.New("viewer").Parse(`<html>
  <head><title>AdAPT Generated Creative</title></head>
  <body style="margin:0;background:#0a0a1a;display:flex;align-items:center;justify-content:center;min-height:100vh;">
    <img src="{{.}}" style="max-width:100%;max-height:100vh;object-fit:contain;" />
  </body>
</html>
`))

// ViewerPage writes the standalone page that shows the creative full size.
func ViewerPage(w io.Writer, state core.GenerationState) error {
	result, err := Download(state)
	if err != nil {
		return err
	}
	// built from image bytes only
	return viewerTemplate.Execute(w, template.URL(result.DataURL())) //nolint:gosec
}
