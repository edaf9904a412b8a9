package text_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/castpress/castpress/internal/config"
	"github.com/castpress/castpress/internal/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "the synopsis"}},
			},
		})
	}))
	defer srv.Close()

	p := text.NewOpenAIProvider(config.TextProviderConfig{
		Kind: "openai", BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o",
	})

	out, err := p.Generate(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, "the synopsis", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := text.NewOpenAIProvider(config.TextProviderConfig{BaseURL: srv.URL, Model: "gpt-4o"})

	_, err := p.Generate(context.Background(), "summarize")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIProvider_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p := text.NewOpenAIProvider(config.TextProviderConfig{BaseURL: srv.URL, Model: "gpt-4o"})

	_, err := p.Generate(context.Background(), "summarize")
	assert.ErrorIs(t, err, text.ErrEmptyCompletion)
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		assert.Equal(t, "/v1/messages", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "the narration"},
			},
		})
	}))
	defer srv.Close()

	p := text.NewAnthropicProvider(config.TextProviderConfig{
		Kind: "anthropic", BaseURL: srv.URL, APIKey: "ak-test", Model: "claude-sonnet-4-5-20250929",
	})

	out, err := p.Generate(context.Background(), "write a script")
	require.NoError(t, err)
	assert.Equal(t, "the narration", out)
	assert.Equal(t, "ak-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer srv.Close()

	p := text.NewAnthropicProvider(config.TextProviderConfig{BaseURL: srv.URL})

	_, err := p.Generate(context.Background(), "write a script")
	assert.ErrorIs(t, err, text.ErrEmptyCompletion)
}

func TestNewProvider_Factory(t *testing.T) {
	p, err := text.NewProvider(config.TextProviderConfig{Kind: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = text.NewProvider(config.TextProviderConfig{Kind: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = text.NewProvider(config.TextProviderConfig{Kind: "bard"})
	assert.Error(t, err)
}
