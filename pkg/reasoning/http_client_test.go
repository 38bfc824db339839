package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_GenerateContent(t *testing.T) {
	var received generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"pass\": true,"},{"text":" \"failures\": []}"}]}}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(Config{BaseURL: server.URL + "/v1beta", APIKey: "secret", Model: "test-model"}, nil)

	text, err := client.GenerateContent(context.Background(), "is this ok?", "you are a reviewer")
	require.NoError(t, err)
	assert.Equal(t, `{"pass": true, "failures": []}`, text)

	require.Len(t, received.Contents, 1)
	assert.Equal(t, "is this ok?", received.Contents[0].Parts[0].Text)
	require.NotNil(t, received.SystemInstruction)
	assert.Equal(t, "you are a reviewer", received.SystemInstruction.Parts[0].Text)
}

func TestHTTPClient_StatusError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{name: "server error", status: http.StatusServiceUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, rateLimited: true},
		{name: "bad request", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := NewHTTPClient(Config{BaseURL: server.URL}, nil)

			_, err := client.GenerateContent(context.Background(), "prompt", "")

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode())
			assert.Equal(t, tt.rateLimited, statusErr.RateLimited())
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestHTTPClient_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := NewHTTPClient(Config{BaseURL: server.URL}, nil).GenerateContent(context.Background(), "prompt", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client := NewHTTPClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := client.GenerateContent(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reasoning request failed")
}

func TestClientFunc(t *testing.T) {
	boom := errors.New("boom")

	var client Client = ClientFunc(func(_ context.Context, prompt, _ string) (string, error) {
		if prompt == "" {
			return "", boom
		}

		return "echo: " + prompt, nil
	})

	text, err := client.GenerateContent(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", text)

	_, err = client.GenerateContent(context.Background(), "", "")
	assert.ErrorIs(t, err, boom)
}
