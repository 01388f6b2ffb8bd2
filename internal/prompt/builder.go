// Package prompt composes the multimodal request sent to the image model.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"adaptstudio/internal/core"
)

// DefaultPrompt replaces an empty or whitespace-only user instruction.
const DefaultPrompt = "Create a professional advertisement suitable for social media."

// Inputs are the slot contents and prompt of one attempt.
type Inputs struct {
	Product   *core.UploadedFile
	Reference *core.UploadedFile
	Logo      *core.UploadedFile // optional
	Prompt    string
}

type instructionData struct {
	Parts      []string
	HasLogo    bool
	UserPrompt string
}

var instructionTemplate = template.Must(template.New("instruction").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(
	`You are an expert creative director and image editor.
Task: Create a new high-fidelity ad creative based on the provided images.

Inputs provided in order:
{{- range $i, $p := .Parts}}
{{inc $i}}. {{$p}}
{{- end}}

Instructions:
- Analyze the Reference Ad's composition, lighting, shadows, and perspective.
- Replace the main object in the Reference Ad with the provided Product Image.
- Ensure the Product Image matches the lighting and perspective of the Reference Ad perfectly.
- {{if .HasLogo}}Place the Logo in a natural position, similar to branding in the Reference Ad, or where appropriate.{{else}}No logo provided.{{end}}
- Maintain the background, text style (if any text is preserved), and overall vibe of the Reference Ad.
- User Instruction: {{.UserPrompt}}

Output: A single, high-quality image.
`))

// EffectivePrompt trims the user prompt and substitutes DefaultPrompt when nothing is left.
func EffectivePrompt(p string) string {
	if trimmed := strings.TrimSpace(p); trimmed != "" {
		return trimmed
	}
	return DefaultPrompt
}

// Build returns the ordered request: product, optional logo, then the reference ad,
// which always comes last so the model treats it as the layout base.
func Build(in Inputs) (*core.GenerationRequest, error) {
	if in.Product == nil {
		return nil, core.NewInvalidRequestError("product image is required", nil)
	}
	if in.Reference == nil {
		return nil, core.NewInvalidRequestError("reference ad is required", nil)
	}

	req := &core.GenerationRequest{}
	data := instructionData{UserPrompt: EffectivePrompt(in.Prompt)}

	add := func(role core.SlotRole, f *core.UploadedFile, description string) error {
		part, err := imagePart(role, f)
		if err != nil {
			return err
		}
		req.Parts = append(req.Parts, part)
		data.Parts = append(data.Parts, description)
		return nil
	}

	if err := add(core.SlotProduct, in.Product, "Product Image: The new item to feature."); err != nil {
		return nil, err
	}
	if in.Logo != nil {
		data.HasLogo = true
		if err := add(core.SlotLogo, in.Logo, "Logo: The brand logo to overlay."); err != nil {
			return nil, err
		}
	}
	if err := add(core.SlotReference, in.Reference, "Reference Ad: The template layout and style source."); err != nil {
		return nil, err
	}

	var b strings.Builder
	if err := instructionTemplate.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("render instruction: %w", err)
	}
	req.Instruction = b.String()
	return req, nil
}

func imagePart(role core.SlotRole, f *core.UploadedFile) (core.ImagePart, error) {
	mimeType, data, err := core.DecodeDataURL(f.EncodedData)
	if err != nil {
		return core.ImagePart{}, core.NewInvalidRequestError(fmt.Sprintf("%s image is not encoded", role), err)
	}
	if f.Raw.MIMEType != "" {
		mimeType = f.Raw.MIMEType
	}
	return core.ImagePart{Role: role, MIMEType: mimeType, Data: data}, nil
}
