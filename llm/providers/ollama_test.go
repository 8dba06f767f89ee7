package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaBuildURL(t *testing.T) {
	p := &OllamaProvider{}

	assert.Equal(t, "http://localhost:11434/v1/chat/completions", p.BuildURL("", "qwen2.5:14b"))
	assert.Equal(t, "http://host:8000/v1/chat/completions", p.BuildURL("http://host:8000/v1", "qwen2.5:14b"))
}

func TestOllamaParseResponseFillsModel(t *testing.T) {
	p := &OllamaProvider{}

	// Local servers sometimes omit the model field.
	body := []byte(`{"choices": [{"message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}]}`)

	resp, err := p.ParseResponse(body, "qwen2.5:14b")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:14b", resp.Model)
}
