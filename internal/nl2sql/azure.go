package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAzureAPIVersion = "2024-02-15-preview"

type AzureConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// AzureTranslator targets Azure OpenAI, where the deployment name replaces
// the model field and authentication uses the api-key header.
type AzureTranslator struct {
	endpoint    string
	apiKey      string
	deployment  string
	apiVersion  string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewAzureTranslator(cfg AzureConfig) (*AzureTranslator, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return nil, errors.New("deployment is required")
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	return &AzureTranslator{
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		deployment:  strings.TrimSpace(cfg.Deployment),
		apiVersion:  apiVersion,
		maxTokens:   orDefault(cfg.MaxTokens, defaultMaxTokens),
		temperature: orDefault(cfg.Temperature, defaultTemperature),
		client:      &http.Client{Timeout: orDefault(cfg.Timeout, defaultTimeout)},
	}, nil
}

func (t *AzureTranslator) Translate(ctx context.Context, naturalLanguage string) (string, error) {
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		t.endpoint, url.PathEscape(t.deployment), url.QueryEscape(t.apiVersion))
	return completeChat(ctx, t.client, endpoint,
		func(r *http.Request) { r.Header.Set("api-key", t.apiKey) },
		chatPayload("", naturalLanguage, t.maxTokens, t.temperature))
}

func (t *AzureTranslator) Healthy() error {
	if t == nil || t.client == nil {
		return fmt.Errorf("%w: translator not initialized", ErrUnavailable)
	}
	return nil
}
