package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/infumatch/negotiator/llm"
	_ "github.com/infumatch/negotiator/llm/providers" // Register providers
	"github.com/infumatch/negotiator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry wires a single ollama-protocol endpoint at url under the
// analysis capability.
func testRegistry(url string) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityAnalysis: {
				Description: "Test capability",
				Preferred:   []string{"test-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"test-model": {
				Provider: "ollama",
				URL:      url,
				Model:    "test-model",
			},
		},
	)
}

func openAISuccessBody(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-123",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestClientCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccessBody("Hello! How can I help you?"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages: []llm.Message{
			{Role: "user", Content: "Hello"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClientCompleteRetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service temporarily unavailable"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccessBody("Success after retries"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL), llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Millisecond,
	}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClientCompleteFatalErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), attempts.Load(), "fatal errors must not be retried")
}

func TestClientCompleteExhaustedRetries(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL), llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Millisecond,
	}))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClientCompleteFallbackChain(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccessBody("from fallback"))
	}))
	defer healthy.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityAnalysis: {
				Preferred: []string{"primary"},
				Fallback:  []string{"backup"},
			},
		},
		map[string]*model.EndpointConfig{
			"primary": {Provider: "ollama", URL: broken.URL, Model: "primary"},
			"backup":  {Provider: "ollama", URL: healthy.URL, Model: "backup"},
		},
	)

	client := llm.NewClient(registry, llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       1,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Millisecond,
	}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
		Messages:   []llm.Message{{Role: "user", Content: "Hello"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
}

func TestClientCompleteValidation(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err, "missing capability")

	_, err = client.Complete(context.Background(), llm.Request{
		Capability: "analysis",
	})
	assert.Error(t, err, "missing messages")
}
