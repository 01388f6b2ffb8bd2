// Package genai provides an image generator built on the official Google Gen AI SDK,
// usable against both the Gemini API and Vertex AI.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"adaptstudio/config"
	"adaptstudio/internal/core"
	"adaptstudio/internal/providers"
)

const (
	providerName    = "genai"
	defaultMIMEType = "image/png"

	backendGeminiAPI = "gemini-api"
	backendVertex    = "vertex"
)

func init() {
	providers.Register(providerName, func(cfg config.GeneratorConfig, httpClient *http.Client) (core.ImageGenerator, error) {
		return New(cfg, httpClient), nil
	})
}

// Provider implements core.ImageGenerator with genai.Client.
// The SDK client is built on first use so that missing credentials surface on the
// first attempt rather than at startup.
type Provider struct {
	cfg        config.GeneratorConfig
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// New creates a generator from the generator section of the config.
func New(cfg config.GeneratorConfig, httpClient *http.Client) *Provider {
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}
	if cfg.Backend == "" {
		cfg.Backend = backendGeminiAPI
	}
	return &Provider{cfg: cfg, httpClient: httpClient}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) clientFor(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	cc := &genai.ClientConfig{HTTPClient: p.httpClient}
	switch p.cfg.Backend {
	case backendVertex:
		cc.Backend = genai.BackendVertexAI
		cc.Project = p.cfg.Project
		cc.Location = p.cfg.Location
	default:
		if p.cfg.APIKey == "" {
			return nil, core.NewConfigurationError(core.MessageMissingAPIKey)
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = p.cfg.APIKey
	}
	if p.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, core.NewConfigurationError(fmt.Sprintf("failed to create genai client: %v", err))
	}
	p.client = client
	return client, nil
}

// Generate performs exactly one GenerateContent call.
func (p *Provider) Generate(ctx context.Context, req *core.GenerationRequest) (*core.ResultImage, error) {
	client, err := p.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(req.Parts)+1)
	for _, ip := range req.Parts {
		parts = append(parts, genai.NewPartFromBytes(ip.Data, ip.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Instruction))

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityImage)},
		},
	)
	if err != nil {
		return nil, convertError(ctx, err)
	}
	return extractImage(resp)
}

func extractImage(resp *genai.GenerateContentResponse) (*core.ResultImage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, core.NewNoImageError(providerName)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := strings.TrimSpace(part.InlineData.MIMEType)
		if mimeType == "" {
			mimeType = defaultMIMEType
		}
		return &core.ResultImage{MIMEType: mimeType, Data: part.InlineData.Data}, nil
	}
	return nil, core.NewNoImageError(providerName)
}

// convertError maps SDK errors onto studio errors, keeping the service's message.
func convertError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return core.NewGenerationError(providerName, err.Error(), err)
	}

	if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
		e := core.NewGenerationError(providerName, apiErr.Message, err)
		e.Type = core.ErrorTypeConfiguration
		return e
	}
	return core.NewGenerationError(providerName, apiErr.Message, err)
}
