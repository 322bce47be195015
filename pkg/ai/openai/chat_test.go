package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
)

func completionBody(content string) string {
	body := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestGenerateCompletionWithFormat_DecodesAndSendsSchema(t *testing.T) {
	var request map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &request)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody(`{"label":"NLP","expanded_label":"natural language processing"}`))
	}))
	defer srv.Close()

	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{ChatModel: "test-model", ChatURL: srv.URL, ChatKey: "k"})

	var out struct {
		Label         string `json:"label"`
		ExpandedLabel string `json:"expanded_label"`
	}
	err := client.GenerateCompletionWithFormat(context.Background(), "label_expansion", "expanded labels", "expand NLP", &out,
		ai.WithSystemPrompts("be precise"))
	if err != nil {
		t.Fatalf("GenerateCompletionWithFormat() error = %v", err)
	}
	if out.ExpandedLabel != "natural language processing" {
		t.Fatalf("unexpected output %+v", out)
	}
	if request["model"] != "test-model" {
		t.Fatalf("unexpected model %v", request["model"])
	}
	format, _ := request["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", request["response_format"])
	}
	if msgs, _ := request["messages"].([]any); len(msgs) != 2 {
		t.Fatalf("expected system and user message, got %v", request["messages"])
	}
	if m := client.GetMetrics(); m.TotalTokens != 15 || m.Requests != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	client.ResetMetrics()
	if m := client.GetMetrics(); m.TotalTokens != 0 {
		t.Fatalf("metrics not reset: %+v", m)
	}
}

func TestGenerateCompletionWithFormat_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{ChatModel: "m", ChatURL: srv.URL, ChatKey: "k"})
	var out struct {
		Label string `json:"label"`
	}
	err := client.GenerateCompletionWithFormat(context.Background(), "x", "", "p", &out)
	if !ai.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGenerateCompletionWithFormat_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("I cannot help with that"))
	}))
	defer srv.Close()

	client := NewGraphOpenAIClient(NewGraphOpenAIClientParams{ChatModel: "m", ChatURL: srv.URL, ChatKey: "k"})
	var out struct {
		Label string `json:"label"`
	}
	err := client.GenerateCompletionWithFormat(context.Background(), "x", "", "p", &out)
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
