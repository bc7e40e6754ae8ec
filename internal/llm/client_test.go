package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// --- Registry tests ---

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry(silentLog())

	mock := &MockClient{ProviderName: "test-provider"}
	reg.Register("test-provider", mock)

	client, err := reg.Resolve("test-provider")
	require.NoError(t, err)
	assert.Equal(t, "test-provider", client.Name())
}

func TestRegistryAlias(t *testing.T) {
	reg := NewRegistry(silentLog())

	reg.Register("gemini", &MockClient{ProviderName: "gemini"})
	reg.Alias("gemini-1.5-pro", "gemini")

	client, err := reg.Resolve("gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())
}

func TestRegistryFallback(t *testing.T) {
	reg := NewRegistry(silentLog())

	reg.Register("default-llm", &MockClient{ProviderName: "default-llm"})
	reg.SetFallback("default-llm")

	client, err := reg.Resolve("unknown-model-xyz")
	require.NoError(t, err)
	assert.Equal(t, "default-llm", client.Name())
}

func TestRegistryResolveNotFound(t *testing.T) {
	reg := NewRegistry(silentLog())

	_, err := reg.Resolve("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no generation provider")
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("b", &MockClient{ProviderName: "b"})
	reg.Register("a", &MockClient{ProviderName: "a"})

	assert.Equal(t, []string{"a", "b"}, reg.List())
}

func TestNewRegistryFromConfig(t *testing.T) {
	tests := []struct {
		provider string
		want     []string
	}{
		{"gemini", []string{"gemini"}},
		{"", []string{"gemini"}},
		{"openai", []string{"openai"}},
		{"ollama", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			reg := NewRegistryFromConfig(config.GenerationConfig{
				Provider: tt.provider,
				APIKey:   "k",
				Model:    "some-model",
			}, silentLog())
			assert.Equal(t, tt.want, reg.List())
		})
	}
}

func TestNewRegistryFromConfigResolvesModel(t *testing.T) {
	reg := NewRegistryFromConfig(config.GenerationConfig{Provider: "gemini", Model: "gemini-1.5-flash"}, silentLog())
	client, err := reg.Resolve("gemini-1.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())
}

// --- Mock tests ---

func TestMockClientComplete(t *testing.T) {
	mock := &MockClient{
		ProviderName: "test",
		CompleteFunc: func(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return &CompletionResponse{Content: "echo: " + req.Prompt}, nil
		},
	}

	resp, err := mock.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Content)
}

func TestMockClientDefaultComplete(t *testing.T) {
	mock := &MockClient{ProviderName: "test"}
	resp, err := mock.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)
}

// --- ProviderError tests ---

func TestProviderErrorFormat(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Message: "quota exceeded", Code: 429}
	assert.Equal(t, "gemini: 429 quota exceeded", err.Error())

	err = &ProviderError{Provider: "gemini", Message: "unreachable"}
	assert.Equal(t, "gemini: unreachable", err.Error())
}

// --- Gemini tests ---

func TestGeminiComplete(t *testing.T) {
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Contains(t, r.Header.Get("User-Agent"), "campusbot/")

		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [
				{"content": {"role": "model", "parts": [{"text": "The library "}, {"text": "is on Main St."}]}, "finishReason": "STOP"},
				{"content": {"parts": [{"text": "ignored"}]}}
			],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 6}
		}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("secret", "gemini-1.5-flash", srv.URL+"/", 0)
	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "prefix: Where is the library?"})
	require.NoError(t, err)

	assert.Equal(t, "The library is on Main St.", resp.Content)
	assert.Equal(t, "STOP", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)

	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "prefix: Where is the library?", gotBody.Contents[0].Parts[0].Text)
	assert.Nil(t, gotBody.GenerationConfig)
}

func TestGeminiGenerationConfig(t *testing.T) {
	temp := 0.3
	body := NewGeminiClient("", "m", "", 0).buildRequestBody(CompletionRequest{Prompt: "p", MaxTokens: 64, Temperature: &temp})
	require.NotNil(t, body.GenerationConfig)
	assert.Equal(t, 64, body.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 0.3, *body.GenerationConfig.Temperature)
}

func TestGeminiFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-success status",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"code": 429, "message": "Resource has been exhausted"}}`,
			check: func(t *testing.T, err error) {
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, 429, pe.Code)
				assert.Equal(t, "Resource has been exhausted", pe.Message)
			},
		},
		{
			name:   "plain error body",
			status: http.StatusBadGateway,
			body:   "upstream down\n",
			check: func(t *testing.T, err error) {
				var pe *ProviderError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "upstream down", pe.Message)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"candidates": [`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "failed to parse response")
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates": []}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoCandidates)
			},
		},
		{
			name:   "empty text",
			status: http.StatusOK,
			body:   `{"candidates": [{"content": {"parts": [{"text": ""}]}, "finishReason": "SAFETY"}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoCandidates)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewGeminiClient("k", "m", srv.URL, 0).Complete(context.Background(), CompletionRequest{Prompt: "x"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGeminiTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewGeminiClient("k", "m", url, 0).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

// --- OpenAI tests ---

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Equal(t, "prompt text", req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1", "object": "chat.completion", "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Career fair is Friday."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9}
		}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o-mini", srv.URL+"/v1", 0)
	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "prompt text"})
	require.NoError(t, err)
	assert.Equal(t, "Career fair is Friday.", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error": {"message": "Incorrect API key", "type": "invalid_request_error"}}`)
			return
		}
		io.WriteString(w, `{"id": "x", "object": "chat.completion", "choices": []}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("bad", "m", srv.URL+"/v1", 0).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Code)
	assert.Equal(t, "openai", pe.Provider)

	_, err = NewOpenAIClient("good", "m", srv.URL+"/v1", 0).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.True(t, errors.Is(err, ErrNoCandidates))
}
