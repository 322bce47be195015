package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

func openaiError(status int) *openai.Error {
	return &openai.Error{
		StatusCode: status,
		Request:    httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil),
		Response:   &http.Response{StatusCode: status},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"openai 429", openaiError(429), true},
		{"openai 503", openaiError(503), true},
		{"openai 400", openaiError(400), false},
		{"ollama 500", api.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, true},
		{"ollama 404", api.StatusError{StatusCode: 404, Status: "404 Not Found"}, false},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), true},
		{"rate limit text", errors.New("Rate limit reached for requests"), true},
		{"plain", errors.New("invalid prompt"), false},
		{"canceled", context.Canceled, false},
		{"malformed", fmt.Errorf("%w: bad", ErrMalformedResponse), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if IsTransient(got) != tt.transient {
				t.Fatalf("Classify(%v) transient = %v, want %v", tt.err, IsTransient(got), tt.transient)
			}
			if tt.err != nil && !errors.Is(got, tt.err) && got != tt.err {
				t.Fatalf("Classify(%v) lost the original error: %v", tt.err, got)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	once := Classify(openaiError(429))
	twice := Classify(once)
	if once != twice {
		t.Fatalf("expected classified error to be returned unchanged")
	}
}
