package providers

import (
	"encoding/json"
	"testing"

	"github.com/infumatch/negotiator/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiBuildURL(t *testing.T) {
	p := &GeminiProvider{}

	url := p.BuildURL("", "gemini-1.5-flash")
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent", url)

	url = p.BuildURL("https://example.com/", "m")
	assert.Equal(t, "https://example.com/v1beta/models/m:generateContent", url)
}

func TestGeminiBuildRequestBody(t *testing.T) {
	p := &GeminiProvider{}
	temp := 0.3

	body, err := p.BuildRequestBody("gemini-1.5-flash", []llm.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "bye"},
	}, &temp, 256)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	// System message becomes systemInstruction, not a content turn.
	require.Contains(t, req, "systemInstruction")
	contents := req["contents"].([]any)
	require.Len(t, contents, 3)

	// Assistant turns map to the "model" role.
	second := contents[1].(map[string]any)
	assert.Equal(t, "model", second["role"])

	genCfg := req["generationConfig"].(map[string]any)
	assert.Equal(t, 0.3, genCfg["temperature"])
	assert.Equal(t, float64(256), genCfg["maxOutputTokens"])
}

func TestGeminiParseResponse(t *testing.T) {
	p := &GeminiProvider{}

	body := []byte(`{
		"candidates": [{
			"content": {"parts": [{"text": "part one "}, {"text": "part two"}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 5, "candidatesTokenCount": 7, "totalTokenCount": 12}
	}`)

	resp, err := p.ParseResponse(body, "gemini-1.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Content)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestGeminiParseResponseNoCandidates(t *testing.T) {
	p := &GeminiProvider{}

	_, err := p.ParseResponse([]byte(`{"candidates": []}`), "m")
	assert.Error(t, err)
}
