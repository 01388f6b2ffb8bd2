package core

import "context"

// ImageGenerator sends one generation request to the external image model.
// Implementations make exactly one network call per invocation and never retry.
type ImageGenerator interface {
	// Generate returns the first image the model produced, or a *StudioError of type
	// ErrorTypeNoImage, ErrorTypeGeneration or ErrorTypeConfiguration.
	Generate(ctx context.Context, req *GenerationRequest) (*ResultImage, error)

	// Name identifies the generator in logs and metrics.
	Name() string
}
