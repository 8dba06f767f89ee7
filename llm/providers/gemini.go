// Package providers implements LLM provider adapters.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/infumatch/negotiator/llm"
)

// GeminiProvider implements the Google Generative Language API.
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// BuildURL constructs the generateContent endpoint for a model.
func (g *GeminiProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, model)
}

// SetHeaders adds Gemini API key authentication.
func (g *GeminiProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
}

// geminiRequest is the generateContent request format.
type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig  `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// BuildRequestBody creates the generateContent request body.
// The system message becomes systemInstruction; assistant turns map to "model".
func (g *GeminiProvider) BuildRequestBody(_ string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	req := geminiRequest{}

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			req.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: msg.Content}},
			}
		case "assistant":
			req.Contents = append(req.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		default:
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	if temperature != nil || maxTokens > 0 {
		req.GenerationConfig = &geminiGenConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		}
	}

	return json.Marshal(req)
}

// geminiResponse is the generateContent response format.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// ParseResponse extracts content from the generateContent response.
func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return &llm.Response{
		Content: sb.String(),
		Model:   model,
		Usage: llm.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		FinishReason: strings.ToLower(resp.Candidates[0].FinishReason),
	}, nil
}
