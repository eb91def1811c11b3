package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xvetrov/deskpilot/api/schemas"
	"github.com/xvetrov/deskpilot/internal/config"
)

func validGeminiConfig() config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:   config.ProviderGemini,
		Model:      "gemini-2.5-flash",
		APIKey:     "test-api-key",
		APITimeout: 5 * time.Second,
	}
}

// setupGeminiClient rigs up a client pointed at a mock HTTP server.
func setupGeminiClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Log("Warning: Unexpected HTTP request in test.")
			w.WriteHeader(http.StatusNotFound)
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := validGeminiConfig()
	cfg.Endpoint = server.URL

	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client
}

func geminiSuccessBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}],"role":"model"},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`, text)
}

func testGenerationRequest() schemas.GenerationRequest {
	return schemas.GenerationRequest{
		SystemPrompt: "You are a desktop automation planner.",
		UserPrompt:   "Open the calculator.",
		Options:      schemas.GenerationOptions{Temperature: 0.7},
	}
}

func TestNewGeminiClient_DefaultEndpoint(t *testing.T) {
	cfg := validGeminiConfig()
	cfg.Endpoint = ""

	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	expected := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	assert.Equal(t, expected, client.endpoint)
	assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)
}

func TestNewGeminiClient_MissingAPIKey(t *testing.T) {
	cfg := validGeminiConfig()
	cfg.APIKey = ""

	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestGeminiGenerate_Success(t *testing.T) {
	var gotAPIKey string
	var gotPayload geminiRequestPayload

	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotPayload))
		fmt.Fprint(w, geminiSuccessBody("step list here"))
	})

	out, err := client.Generate(context.Background(), testGenerationRequest())
	require.NoError(t, err)

	assert.Equal(t, "step list here", out)
	assert.Equal(t, "test-api-key", gotAPIKey)
	require.NotNil(t, gotPayload.SystemInstruction)
	assert.Equal(t, "You are a desktop automation planner.", gotPayload.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "Open the calculator.", gotPayload.Contents[0].Parts[0].Text)
}

func TestGeminiGenerate_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int32
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, geminiSuccessBody("recovered"))
	})

	out, err := client.Generate(context.Background(), testGenerationRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGeminiGenerate_PermanentErrorIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request"}}`)
	})

	_, err := client.Generate(context.Background(), testGenerationRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load(), "4xx responses must not be retried")
}

func TestGeminiGenerate_SafetyBlockIsPermanent(t *testing.T) {
	var attempts atomic.Int32
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`)
	})

	_, err := client.Generate(context.Background(), testGenerationRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGeminiBuildRequestPayload_VisionAndJSON(t *testing.T) {
	cfg := validGeminiConfig()
	client, err := NewGeminiClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := testGenerationRequest()
	req.Options.ForceJSONFormat = true
	req.Images = [][]byte{[]byte("fake-png-bytes")}

	payload := client.buildRequestPayload(req)

	assert.Equal(t, "application/json", payload.GenerationConfig.ResponseMimeType)
	require.Len(t, payload.Contents, 1)
	require.Len(t, payload.Contents[0].Parts, 2, "text part plus one inline image part")

	imagePart := payload.Contents[0].Parts[1]
	require.NotNil(t, imagePart.InlineData)
	assert.Equal(t, "image/png", imagePart.InlineData.MimeType)
	assert.NotEmpty(t, imagePart.InlineData.Data)
}
