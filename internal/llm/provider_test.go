package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": `[]`},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 42, "completion_tokens": 2},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	assert.Equal(t, "openai", p.Name())

	resp, err := p.Generate(context.Background(), &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "analise este texto"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
}

func TestOpenAIUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	_, err := p.Generate(context.Background(), &Request{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotAvailable)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		var resp ollamaResponse
		resp.Message.Content = "nenhum dado pessoal encontrado"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL)
	assert.Equal(t, "ollama", p.Name())

	resp, err := p.Generate(context.Background(), &Request{
		Model:    "llama3.2",
		Messages: []Message{{Role: "user", Content: "analise"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "nenhum dado pessoal encontrado", resp.Content)
}

func TestOllamaDefaultBaseURL(t *testing.T) {
	p := NewOllamaProvider("")
	assert.Equal(t, "http://localhost:11434", p.baseURL)
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL).Generate(context.Background(), &Request{Model: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotAvailable)
}
