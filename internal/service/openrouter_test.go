package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouter_Complete(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://bot.example", r.Header.Get("HTTP-Referer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"こんにちは"}}]}`))
	}))
	defer srv.Close()

	s := NewOpenRouterService("key", srv.URL, "anthropic/claude-3-haiku", "https://bot.example")
	out, err := s.Complete(context.Background(), "reply", []ChatMessage{{Role: "user", Content: "hi"}}, 0.7, 1000)
	require.NoError(t, err)

	assert.Equal(t, "こんにちは", out)
	assert.Equal(t, "anthropic/claude-3-haiku", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.Equal(t, []ChatMessage{{Role: "user", Content: "hi"}}, got.Messages)
}

func TestOpenRouter_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantStatus: 429},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantStatus: 500},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: domain.ErrEmptyCompletion},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewOpenRouterService("key", srv.URL, "m", "")
			_, err := s.Complete(context.Background(), "reply", nil, 0.7, 10)
			require.Error(t, err)

			var apiErr *ExternalAPIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
