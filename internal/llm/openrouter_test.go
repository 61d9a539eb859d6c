package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterClientGenerate(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1",
			"object": "chat.completion",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "<json>{\"version\":\"1\",\"issues\":[]}"}}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewOpenRouterClient(OpenRouterConfig{
		BaseURL: srv.URL,
		APIKey:  "or-test-key",
		Model:   "meta-llama/llama-3-70b-instruct",
		Params:  Params{MaxNewTokens: 1024, Stop: []string{"</json>"}},
	}, srv.Client())
	require.NoError(t, err)
	assert.True(t, client.Configured())
	assert.True(t, client.Health(context.Background()))

	out, err := client.Generate(context.Background(), "review this")
	require.NoError(t, err)
	assert.Equal(t, `<json>{"version":"1","issues":[]}`, out)

	assert.Equal(t, "Bearer or-test-key", gotAuth)
	assert.Equal(t, "meta-llama/llama-3-70b-instruct", gotBody["model"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
}

func TestOpenRouterClientRequiresKey(t *testing.T) {
	t.Parallel()

	client, err := NewOpenRouterClient(OpenRouterConfig{Model: "m"}, nil)
	require.NoError(t, err)
	assert.False(t, client.Configured())
	assert.False(t, client.Health(context.Background()))

	_, err = client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback key")
}

func TestNewOpenRouterClientRequiresModel(t *testing.T) {
	t.Parallel()

	_, err := NewOpenRouterClient(OpenRouterConfig{APIKey: "k"}, nil)
	assert.Error(t, err)
}
