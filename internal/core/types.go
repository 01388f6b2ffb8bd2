package core

import "time"

// SlotRole names one of the three upload roles of the studio.
type SlotRole string

const (
	SlotReference SlotRole = "reference"
	SlotProduct   SlotRole = "product"
	SlotLogo      SlotRole = "logo"
)

// SlotRoles lists the roles in display order.
var SlotRoles = []SlotRole{SlotReference, SlotProduct, SlotLogo}

// ParseSlotRole validates a role name taken from a URL or form.
func ParseSlotRole(s string) (SlotRole, bool) {
	switch SlotRole(s) {
	case SlotReference, SlotProduct, SlotLogo:
		return SlotRole(s), true
	}
	return "", false
}

// FileInfo describes the original file an upload was made from.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// UploadedFile is one validated, encoded image ready for preview and transmission.
// Values are never mutated after construction; slots replace them wholesale.
type UploadedFile struct {
	Raw        FileInfo  `json:"raw"`
	PreviewURL string    `json:"preview_url"`
	UploadedAt time.Time `json:"uploaded_at"`

	// EncodedData is a data URL of the full file content.
	EncodedData string `json:"-"`
}

// Bytes decodes EncodedData back into the original file content.
func (f *UploadedFile) Bytes() ([]byte, error) {
	_, data, err := DecodeDataURL(f.EncodedData)
	return data, err
}

// GenerationStatus is the tag of GenerationState.
type GenerationStatus string

const (
	StatusIdle    GenerationStatus = "idle"
	StatusLoading GenerationStatus = "loading"
	StatusSuccess GenerationStatus = "success"
	StatusError   GenerationStatus = "error"
)

// GenerationState is a tagged union: only the fields of the active variant are set.
// Use the constructors below instead of struct literals.
type GenerationState struct {
	Status       GenerationStatus `json:"status"`
	Result       *ResultImage     `json:"-"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// IdleState returns the initial state.
func IdleState() GenerationState {
	return GenerationState{Status: StatusIdle}
}

// LoadingState returns the in-flight state.
func LoadingState() GenerationState {
	return GenerationState{Status: StatusLoading}
}

// SuccessState returns a terminal state holding the generated image.
func SuccessState(result *ResultImage) GenerationState {
	return GenerationState{Status: StatusSuccess, Result: result}
}

// ErrorState returns a terminal state holding a user-facing message.
func ErrorState(message string) GenerationState {
	return GenerationState{Status: StatusError, ErrorMessage: message}
}

// ImagePart is one inline image of a generation request.
type ImagePart struct {
	Role     SlotRole
	MIMEType string
	Data     []byte
}

// GenerationRequest is the ordered multimodal payload of one attempt:
// product, optional logo, then the reference ad, followed by the instruction text.
type GenerationRequest struct {
	Parts       []ImagePart
	Instruction string
}

// ResultImage is the image returned by the model.
type ResultImage struct {
	MIMEType string
	Data     []byte
}

// DataURL returns the self-describing reference of the image.
func (r *ResultImage) DataURL() string {
	return EncodeDataURL(r.MIMEType, r.Data)
}
