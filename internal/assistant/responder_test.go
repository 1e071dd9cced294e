package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

func aiConfig(url, key string, timeout time.Duration) config.Config {
	return config.Config{AI: config.AI{
		Provider:    config.AIProviderOpenRouter,
		APIKey:      key,
		BaseURL:     url,
		Model:       "test-model",
		Referer:     "https://shop.example",
		Title:       "Tenzai",
		Timeout:     timeout,
		MaxTokens:   100,
		Temperature: 0.7,
	}}
}

func TestRespondWithoutKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	r := NewResponder(aiConfig(srv.URL, "", time.Second), zap.NewNop())
	assert.Equal(t, FallbackMessage, r.Respond(context.Background(), "anything", "U1"))
	assert.Zero(t, calls.Load())
}

func TestRespondReturnsModelAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://shop.example", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Tenzai", r.Header.Get("X-Title"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 100, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "มีที่จอดรถไหม", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  มีค่ะ  "}}]}`))
	}))
	defer srv.Close()

	r := NewResponder(aiConfig(srv.URL, "key", time.Second), zap.NewNop())
	assert.Equal(t, "มีค่ะ", r.Respond(context.Background(), "มีที่จอดรถไหม", "U1"))
}

func TestRespondFallsBackOnFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
		{"blank content", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			r := NewResponder(aiConfig(srv.URL, "key", 100*time.Millisecond), zap.NewNop())
			assert.Equal(t, FallbackMessage, r.Respond(context.Background(), "question?", "U1"))
		})
	}
}

func TestMockProvider(t *testing.T) {
	cfg := config.Config{AI: config.AI{Provider: config.AIProviderMock}}
	r := NewResponder(cfg, zap.NewNop())
	assert.Contains(t, r.Respond(context.Background(), "hi there", "U1"), "hi there")

	failing := NewResponderWith(MockGenerator{Err: errors.New("down")}, zap.NewNop())
	assert.Equal(t, FallbackMessage, failing.Respond(context.Background(), "x", "U1"))
}
