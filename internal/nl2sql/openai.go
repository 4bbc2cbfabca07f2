package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel       = "gpt-4"
	defaultMaxTokens   = 500
	defaultTemperature = 0.1
	defaultTimeout     = 30 * time.Second
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAITranslator speaks the OpenAI-compatible chat completions protocol,
// which also covers self-hosted gateways exposing the same surface.
type OpenAITranslator struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &OpenAITranslator{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		maxTokens:   orDefault(cfg.MaxTokens, defaultMaxTokens),
		temperature: orDefault(cfg.Temperature, defaultTemperature),
		client:      &http.Client{Timeout: orDefault(cfg.Timeout, defaultTimeout)},
	}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, naturalLanguage string) (string, error) {
	return completeChat(ctx, t.client, t.baseURL+"/v1/chat/completions",
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+t.apiKey) },
		chatPayload(t.model, naturalLanguage, t.maxTokens, t.temperature))
}

func (t *OpenAITranslator) Healthy() error {
	if t == nil || t.client == nil {
		return fmt.Errorf("%w: translator not initialized", ErrUnavailable)
	}
	return nil
}
