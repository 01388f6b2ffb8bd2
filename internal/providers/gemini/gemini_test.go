package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"adaptstudio/config"
	"adaptstudio/internal/core"
	"adaptstudio/internal/providers"
)

func sampleRequest() *core.GenerationRequest {
	return &core.GenerationRequest{
		Parts: []core.ImagePart{
			{Role: core.SlotProduct, MIMEType: "image/jpeg", Data: []byte("product")},
			{Role: core.SlotLogo, MIMEType: "image/png", Data: []byte("logo")},
			{Role: core.SlotReference, MIMEType: "image/png", Data: []byte("reference")},
		},
		Instruction: "make an ad",
	}
}

func TestGenerate_Success(t *testing.T) {
	var body []byte
	var path, apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-goog-api-key")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/jpeg","data":"` +
			base64.StdEncoding.EncodeToString([]byte("creative")) + `"}}]}}]}`))
	}))
	defer server.Close()

	p := NewWithHTTPClient("key-123", "gemini-2.5-flash-image", server.Client())
	p.SetBaseURL(server.URL)

	result, err := p.Generate(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.5-flash-image:generateContent", path)
	assert.Equal(t, "key-123", apiKey)
	assert.Equal(t, "image/jpeg", result.MIMEType)
	assert.Equal(t, []byte("creative"), result.Data)

	parts := gjson.GetBytes(body, "contents.0.parts").Array()
	require.Len(t, parts, 4)
	assert.Equal(t, "image/jpeg", parts[0].Get("inlineData.mimeType").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("product")), parts[0].Get("inlineData.data").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("logo")), parts[1].Get("inlineData.data").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("reference")), parts[2].Get("inlineData.data").String())
	assert.Equal(t, "make an ad", parts[3].Get("text").String())
	assert.Equal(t, "IMAGE", gjson.GetBytes(body, "generationConfig.responseModalities.0").String())
}

func TestParseResponse(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("img"))

	tests := []struct {
		name     string
		body     string
		wantMIME string
		wantType core.ErrorType
	}{
		{
			name:     "missing mime defaults to png",
			body:     `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"` + img + `"}}]}}]}`,
			wantMIME: "image/png",
		},
		{
			name:     "text part before image",
			body:     `{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/webp","data":"` + img + `"}}]}}]}`,
			wantMIME: "image/webp",
		},
		{
			name:     "snake case fields",
			body:     `{"candidates":[{"content":{"parts":[{"inline_data":{"mime_type":"image/jpeg","data":"` + img + `"}}]}}]}`,
			wantMIME: "image/jpeg",
		},
		{
			name:     "text only",
			body:     `{"candidates":[{"content":{"parts":[{"text":"I cannot do that"}]}}]}`,
			wantType: core.ErrorTypeNoImage,
		},
		{
			name:     "no candidates",
			body:     `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantType: core.ErrorTypeNoImage,
		},
		{
			name:     "bad base64",
			body:     `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"%%%"}}]}}]}`,
			wantType: core.ErrorTypeGeneration,
		},
		{
			name:     "not json",
			body:     `<html>`,
			wantType: core.ErrorTypeGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResponse([]byte(tt.body))
			if tt.wantType == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMIME, result.MIMEType)
				assert.Equal(t, []byte("img"), result.Data)
				return
			}
			var studioErr *core.StudioError
			require.True(t, errors.As(err, &studioErr))
			assert.Equal(t, tt.wantType, studioErr.Type)
		})
	}
}

func TestGenerate_NoImageMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"nope"}]}}]}`))
	}))
	defer server.Close()

	p := NewWithHTTPClient("k", "", server.Client())
	p.SetBaseURL(server.URL)

	_, err := p.Generate(context.Background(), sampleRequest())
	assert.Equal(t, "No image generated from Gemini.", core.UserMessage(err))
}

func TestGenerate_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	p := NewWithHTTPClient("k", "", server.Client())
	p.SetBaseURL(server.URL)

	_, err := p.Generate(context.Background(), sampleRequest())
	var studioErr *core.StudioError
	require.True(t, errors.As(err, &studioErr))
	assert.Equal(t, core.ErrorTypeGeneration, studioErr.Type)
	assert.Equal(t, "quota exceeded", studioErr.Message)
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	p := NewWithHTTPClient("", "", server.Client())
	p.SetBaseURL(server.URL)

	_, err := p.Generate(context.Background(), sampleRequest())
	var studioErr *core.StudioError
	require.True(t, errors.As(err, &studioErr))
	assert.Equal(t, core.ErrorTypeConfiguration, studioErr.Type)
	assert.False(t, called, "no network call without a key")
}

func TestRegistered(t *testing.T) {
	g, err := providers.Create(config.GeneratorConfig{Type: "gemini", APIKey: "k", BaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())
}
