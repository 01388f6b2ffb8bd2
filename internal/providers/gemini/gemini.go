// Package gemini provides the native Gemini REST image generator.
package gemini

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/tidwall/gjson"

	"adaptstudio/config"
	"adaptstudio/internal/core"
	"adaptstudio/internal/pkg/llmclient"
	"adaptstudio/internal/providers"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// defaultMIMEType is assumed when the response omits one.
	defaultMIMEType = "image/png"
)

func init() {
	providers.Register(providerName, func(cfg config.GeneratorConfig, httpClient *http.Client) (core.ImageGenerator, error) {
		p := NewWithHTTPClient(cfg.APIKey, cfg.Model, httpClient)
		if cfg.BaseURL != "" {
			p.SetBaseURL(cfg.BaseURL)
		}
		return p, nil
	})
}

// Provider implements core.ImageGenerator over the generateContent endpoint.
type Provider struct {
	client *llmclient.Client
	apiKey string
	model  string
}

// New creates a new Gemini generator
func New(apiKey, model string) *Provider {
	return NewWithHTTPClient(apiKey, model, nil)
}

// NewWithHTTPClient creates a new Gemini generator with a custom HTTP client
func NewWithHTTPClient(apiKey, model string, httpClient *http.Client) *Provider {
	if model == "" {
		model = config.DefaultModel
	}
	p := &Provider{apiKey: apiKey, model: model}
	p.client = llmclient.New(httpClient, llmclient.Options{
		Provider: providerName,
		BaseURL:  defaultBaseURL,
		Headers:  p.setHeaders,
	})
	return p
}

// SetBaseURL allows configuring a custom base URL for the generator
func (p *Provider) SetBaseURL(url string) {
	p.client.SetBaseURL(url)
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) setHeaders(h http.Header) {
	h.Set("x-goog-api-key", p.apiKey)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	InlineData *inlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

func convertRequest(req *core.GenerationRequest) *generateRequest {
	parts := make([]part, 0, len(req.Parts)+1)
	for _, p := range req.Parts {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: p.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(p.Data),
		}})
	}
	parts = append(parts, part{Text: req.Instruction})

	return &generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"IMAGE"}},
	}
}

// Generate performs exactly one generateContent call.
func (p *Provider) Generate(ctx context.Context, req *core.GenerationRequest) (*core.ResultImage, error) {
	if p.apiKey == "" {
		return nil, core.NewConfigurationError(core.MessageMissingAPIKey)
	}

	body, err := p.client.PostJSON(ctx, "/models/"+p.model+":generateContent", convertRequest(req))
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

// parseResponse returns the first inline image among the parts of the first candidate.
func parseResponse(body []byte) (*core.ResultImage, error) {
	if !gjson.ValidBytes(body) {
		return nil, core.NewGenerationError(providerName, "invalid response from Gemini", nil)
	}

	var (
		result    *core.ResultImage
		decodeErr error
	)
	gjson.GetBytes(body, "candidates.0.content.parts").ForEach(func(_, p gjson.Result) bool {
		inline := p.Get("inlineData")
		if !inline.Exists() {
			inline = p.Get("inline_data")
		}
		data := inline.Get("data").String()
		if data == "" {
			return true
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			decodeErr = err
			return false
		}
		mimeType := inline.Get("mimeType").String()
		if mimeType == "" {
			mimeType = inline.Get("mime_type").String()
		}
		if mimeType == "" {
			mimeType = defaultMIMEType
		}
		result = &core.ResultImage{MIMEType: mimeType, Data: raw}
		return false
	})

	if decodeErr != nil {
		return nil, core.NewGenerationError(providerName, "failed to decode image data", decodeErr)
	}
	if result == nil {
		return nil, core.NewNoImageError(providerName)
	}
	return result, nil
}
