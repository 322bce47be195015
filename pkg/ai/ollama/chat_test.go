package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
)

func TestGenerateCompletionWithFormat_SendsSchema(t *testing.T) {
	var request map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &request)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"m","message":{"role":"assistant","content":"{\"combos\":[[\"a\"],[\"b\"]]}"},"done":true,"prompt_eval_count":12,"eval_count":4}`)
	}))
	defer srv.Close()

	client, err := NewGraphOllamaClient(NewGraphOllamaClientParams{ChatModel: "m", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewGraphOllamaClient() error = %v", err)
	}

	var out struct {
		Combos [][]string `json:"combos"`
	}
	if err := client.GenerateCompletionWithFormat(context.Background(), "topic_combinations", "", "prompt", &out); err != nil {
		t.Fatalf("GenerateCompletionWithFormat() error = %v", err)
	}
	if len(out.Combos) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	if request["format"] == nil {
		t.Fatal("expected a JSON schema in format")
	}
	if m := client.GetMetrics(); m.TotalTokens != 16 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestGenerateCompletion_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"server busy"}`)
	}))
	defer srv.Close()

	client, _ := NewGraphOllamaClient(NewGraphOllamaClientParams{ChatModel: "m", BaseURL: srv.URL})
	_, err := client.GenerateCompletion(context.Background(), "hi")
	if !ai.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestContextSize(t *testing.T) {
	if n := contextSize("short prompt", nil); n != 0 {
		t.Fatalf("expected default context, got %d", n)
	}
	long := strings.Repeat("graph database ", 5000)
	if n := contextSize(long, nil); n <= defaultContext {
		t.Fatalf("expected enlarged context, got %d", n)
	}
}

func TestNewGraphOllamaClient_InvalidURL(t *testing.T) {
	if _, err := NewGraphOllamaClient(NewGraphOllamaClientParams{BaseURL: "://bad"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
