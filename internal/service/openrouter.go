package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/michikitagawa/ojohoe/internal/config"
	"github.com/michikitagawa/ojohoe/internal/domain"
	"github.com/michikitagawa/ojohoe/internal/metrics"
)

type OpenRouterService struct {
	apiKey     string
	baseURL    string
	model      string
	referer    string
	httpClient *http.Client
}

func NewOpenRouterService(apiKey, baseURL, model, referer string) *OpenRouterService {
	return &OpenRouterService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		referer:    referer,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Completer is a chat-completion backend.
type Completer interface {
	Complete(ctx context.Context, kind string, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Complete sends one chat-completion request and returns the first choice's text.
// kind labels the call in metrics.
func (s *OpenRouterService) Complete(ctx context.Context, kind string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := s.Chat(ctx, ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	metrics.AIRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AIRequests.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return "", err
	}
	if len(resp.Choices) == 0 {
		metrics.AIRequests.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return "", &ExternalAPIError{Service: "openrouter", Err: domain.ErrEmptyCompletion}
	}
	metrics.AIRequests.WithLabelValues(kind, metrics.OutcomeOK).Inc()
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenRouterService) Chat(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if s.referer != "" {
		req.Header.Set("HTTP-Referer", s.referer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ExternalAPIError{Service: "openrouter", Err: fmt.Errorf("chat request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExternalAPIError{Service: "openrouter", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExternalAPIError{
			Service:    "openrouter",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 200)),
		}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &ExternalAPIError{Service: "openrouter", Err: fmt.Errorf("parse response: %w", err)}
	}

	return &chatResp, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
