package providers

import (
	"net/http"
	"strings"

	"github.com/infumatch/negotiator/llm"
)

// OllamaProvider implements the OpenAI-compatible API used by Ollama, vLLM, etc.
// Request and response bodies are identical to OpenAI's; only the base URL and
// authentication differ.
type OllamaProvider struct {
	openai OpenAIProvider
}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *OllamaProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return o.openai.BuildURL(baseURL, model)
}

// SetHeaders adds optional bearer auth for OpenAI-compatible gateways
// (OpenRouter, vLLM) that require it. Plain Ollama ignores it.
func (o *OllamaProvider) SetHeaders(req *http.Request) {
	o.openai.SetHeaders(req)
}

// BuildRequestBody creates the OpenAI-compatible request body.
func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return o.openai.BuildRequestBody(model, messages, temperature, maxTokens)
}

// ParseResponse extracts content from the OpenAI-compatible response.
func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	resp, err := o.openai.ParseResponse(body, model)
	if err != nil {
		return nil, err
	}
	// Some local servers omit the model field in responses.
	if resp.Model == "" {
		resp.Model = strings.TrimSpace(model)
	}
	return resp, nil
}
