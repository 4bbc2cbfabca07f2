package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatPayload builds the request body shared by both providers. The rendered
// prompt travels as the single system message; Azure deployments leave the
// model field empty because the deployment name is part of the URL.
func chatPayload(model, naturalLanguage string, maxTokens int, temperature float64) map[string]any {
	payload := map[string]any{
		"messages": []chatMessage{
			{Role: "system", Content: BuildPrompt(naturalLanguage)},
		},
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if model != "" {
		payload["model"] = model
	}
	return payload
}

// completeChat posts one chat completion request and returns the raw model
// content. Every failure wraps ErrUnavailable so callers can degrade to the
// rule-based translator.
func completeChat(ctx context.Context, client *http.Client, endpoint string, authorize func(*http.Request), payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal chat payload: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build chat request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	authorize(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request chat completion: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read chat response body: %w", ErrUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: chat completion failed status=%d body=%s", ErrUnavailable, resp.StatusCode, string(raw))
	}
	return decodeCompletion(raw)
}

func decodeCompletion(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode chat completion response: %w", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", ErrUnavailable)
	}
	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: chat completion returned empty content", ErrUnavailable)
	}
	return content, nil
}

func orDefault[T int | float64 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
