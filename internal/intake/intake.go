// Package intake validates raw uploads and turns them into encoded, previewable files.
package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"adaptstudio/internal/core"
)

// MaxFileSize is the largest accepted upload, in bytes.
const MaxFileSize int64 = 10 * 1024 * 1024

// RawFile is an upload before validation: its declared metadata plus a way to read it.
type RawFile struct {
	core.FileInfo
	Open func() (io.ReadCloser, error)
}

// FromBytes wraps in-memory content as a RawFile.
func FromBytes(name, mimeType string, data []byte) RawFile {
	return RawFile{
		FileInfo: core.FileInfo{Name: name, Size: int64(len(data)), MIMEType: mimeType},
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromMultipart adapts an uploaded form part. When the part carries no usable content
// type, the type is sniffed from the leading bytes of the content.
func FromMultipart(fh *multipart.FileHeader) (RawFile, error) {
	declared := fh.Header.Get("Content-Type")
	if declared == "" || declared == "application/octet-stream" {
		f, err := fh.Open()
		if err != nil {
			return RawFile{}, core.NewEncodingError(fmt.Errorf("open upload: %w", err))
		}
		detected, err := mimetype.DetectReader(f)
		_ = f.Close()
		if err != nil {
			return RawFile{}, core.NewEncodingError(fmt.Errorf("sniff upload: %w", err))
		}
		declared = detected.String()
	}

	return RawFile{
		FileInfo: core.FileInfo{Name: fh.Filename, Size: fh.Size, MIMEType: declared},
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}, nil
}

// Validate performs the synchronous checks on declared metadata.
func Validate(raw RawFile) error {
	if raw.Size > MaxFileSize {
		return core.NewValidationError(core.MessageFileTooLarge)
	}
	if !strings.HasPrefix(raw.MIMEType, "image/") {
		return core.NewValidationError(core.MessageNotAnImage)
	}
	return nil
}

// PreviewAllocator issues preview references for accepted content.
type PreviewAllocator interface {
	Allocate(mimeType string, data []byte) string
}

// Processor runs validation, reading, encoding and preview allocation.
type Processor struct {
	previews PreviewAllocator
	now      func() time.Time
}

// NewProcessor creates a Processor allocating previews from previews.
func NewProcessor(previews PreviewAllocator) *Processor {
	return &Processor{previews: previews, now: time.Now}
}

// Process validates raw, reads it fully and returns the encoded file. Exactly one
// preview is allocated per successful call and none on failure.
func (p *Processor) Process(ctx context.Context, raw RawFile) (*core.UploadedFile, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readAll(raw)
	if err != nil {
		return nil, core.NewEncodingError(err)
	}
	// the declared size is client supplied; the bytes are what counts
	if int64(len(data)) > MaxFileSize {
		return nil, core.NewValidationError(core.MessageFileTooLarge)
	}

	return &core.UploadedFile{
		Raw: core.FileInfo{
			Name:     raw.Name,
			Size:     int64(len(data)),
			MIMEType: raw.MIMEType,
		},
		PreviewURL:  p.previews.Allocate(raw.MIMEType, data),
		UploadedAt:  p.now(),
		EncodedData: core.EncodeDataURL(raw.MIMEType, data),
	}, nil
}

func readAll(raw RawFile) ([]byte, error) {
	if raw.Open == nil {
		return nil, fmt.Errorf("upload %q has no content", raw.Name)
	}
	rc, err := raw.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
