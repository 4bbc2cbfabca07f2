package nl2sql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func TestOpenAITranslatorSendsChatRequest(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		payload map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("```sql\nSELECT * FROM c\n```")))
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator: %v", err)
	}

	got, err := translator.Translate(context.Background(), "show me all records")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "```sql\nSELECT * FROM c\n```" {
		t.Fatalf("expected raw completion passthrough, got %q", got)
	}

	if captured.path != "/v1/chat/completions" {
		t.Fatalf("unexpected path %q", captured.path)
	}
	if captured.auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", captured.auth)
	}
	if captured.payload["model"] != "gpt-4" {
		t.Fatalf("unexpected model %v", captured.payload["model"])
	}
	if captured.payload["max_tokens"] != float64(500) {
		t.Fatalf("unexpected max_tokens %v", captured.payload["max_tokens"])
	}
	if captured.payload["temperature"] != 0.1 {
		t.Fatalf("unexpected temperature %v", captured.payload["temperature"])
	}
	messages, ok := captured.payload["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected a single message, got %v", captured.payload["messages"])
	}
	message := messages[0].(map[string]any)
	if message["role"] != "system" {
		t.Fatalf("unexpected role %v", message["role"])
	}
	content, _ := message["content"].(string)
	if !strings.Contains(content, "Container: c") {
		t.Fatal("expected prompt schema in system message")
	}
	if !strings.Contains(content, "show me all records") {
		t.Fatal("expected user request in system message")
	}
}

func TestOpenAITranslatorErrorsAreUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, message: "status=500"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, message: "status=401"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, message: "no choices"},
		{name: "empty content", status: http.StatusOK, body: completionResponse("   "), message: "empty content"},
		{name: "malformed body", status: http.StatusOK, body: `{"choices":`, message: "decode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
			if err != nil {
				t.Fatalf("NewOpenAITranslator: %v", err)
			}

			_, err = translator.Translate(context.Background(), "anything")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("expected %q in error, got %q", tc.message, err.Error())
			}
		})
	}
}

func TestNewOpenAITranslatorValidation(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "sk"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "https://api.example.com"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOpenAITranslatorHealthy(t *testing.T) {
	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "https://api.example.com", APIKey: "sk"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator: %v", err)
	}
	if err := translator.Healthy(); err != nil {
		t.Fatalf("expected healthy translator, got %v", err)
	}

	var uninitialized *OpenAITranslator
	if err := uninitialized.Healthy(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for nil translator, got %v", err)
	}
}
