package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptstudio/internal/core"
)

func file(mimeType string, data []byte) *core.UploadedFile {
	return &core.UploadedFile{
		Raw:         core.FileInfo{Name: "f", Size: int64(len(data)), MIMEType: mimeType},
		EncodedData: core.EncodeDataURL(mimeType, data),
	}
}

func roles(req *core.GenerationRequest) []core.SlotRole {
	out := make([]core.SlotRole, 0, len(req.Parts))
	for _, p := range req.Parts {
		out = append(out, p.Role)
	}
	return out
}

func TestBuild_Ordering(t *testing.T) {
	tests := []struct {
		name      string
		logo      *core.UploadedFile
		wantRoles []core.SlotRole
		wantLines []string
	}{
		{
			name:      "without logo",
			wantRoles: []core.SlotRole{core.SlotProduct, core.SlotReference},
			wantLines: []string{"1. Product Image:", "2. Reference Ad:", "No logo provided."},
		},
		{
			name:      "with logo",
			logo:      file("image/png", []byte("logo")),
			wantRoles: []core.SlotRole{core.SlotProduct, core.SlotLogo, core.SlotReference},
			wantLines: []string{"1. Product Image:", "2. Logo:", "3. Reference Ad:", "Place the Logo in a natural position"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Build(Inputs{
				Product:   file("image/jpeg", []byte("product")),
				Reference: file("image/png", []byte("reference")),
				Logo:      tt.logo,
				Prompt:    "warm tones",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantRoles, roles(req))
			assert.Equal(t, core.SlotReference, req.Parts[len(req.Parts)-1].Role, "reference ad must be last")
			for _, line := range tt.wantLines {
				assert.Contains(t, req.Instruction, line)
			}
			if tt.logo == nil {
				assert.NotContains(t, req.Instruction, "Logo:")
			}
		})
	}
}

func TestBuild_PartsCarryDecodedBytes(t *testing.T) {
	req, err := Build(Inputs{
		Product:   file("image/jpeg", []byte("product-bytes")),
		Reference: file("image/webp", []byte("reference-bytes")),
	})
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", req.Parts[0].MIMEType)
	assert.Equal(t, []byte("product-bytes"), req.Parts[0].Data)
	assert.Equal(t, "image/webp", req.Parts[1].MIMEType)
	assert.Equal(t, []byte("reference-bytes"), req.Parts[1].Data)
}

func TestBuild_PromptVerbatim(t *testing.T) {
	userPrompt := `Make it "pop" <b>bold</b> & {{not a template}}`
	req, err := Build(Inputs{
		Product:   file("image/png", []byte("p")),
		Reference: file("image/png", []byte("r")),
		Prompt:    "  " + userPrompt + "\n",
	})
	require.NoError(t, err)

	assert.Contains(t, req.Instruction, "- User Instruction: "+userPrompt+"\n")
}

func TestBuild_DefaultPrompt(t *testing.T) {
	for _, p := range []string{"", "   ", "\n\t"} {
		req, err := Build(Inputs{
			Product:   file("image/png", []byte("p")),
			Reference: file("image/png", []byte("r")),
			Prompt:    p,
		})
		require.NoError(t, err)
		assert.Contains(t, req.Instruction, "User Instruction: "+DefaultPrompt)
	}
}

func TestBuild_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want string
	}{
		{name: "no product", in: Inputs{Reference: file("image/png", []byte("r"))}, want: "product"},
		{name: "no reference", in: Inputs{Product: file("image/png", []byte("p"))}, want: "reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.in)
			var studioErr *core.StudioError
			require.True(t, errors.As(err, &studioErr))
			assert.Equal(t, core.ErrorTypeInvalidRequest, studioErr.Type)
			assert.Contains(t, studioErr.Message, tt.want)
		})
	}
}

func TestBuild_Pure(t *testing.T) {
	in := Inputs{
		Product:   file("image/png", []byte("p")),
		Reference: file("image/png", []byte("r")),
		Prompt:    "same",
	}
	a, err := Build(in)
	require.NoError(t, err)
	b, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(a.Instruction, "Output: A single, high-quality image.\n"))
}

func TestEffectivePrompt(t *testing.T) {
	assert.Equal(t, DefaultPrompt, EffectivePrompt(" "))
	assert.Equal(t, "x", EffectivePrompt(" x "))
}
