package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

var (
	// ErrTransient marks failures worth retrying unchanged after a cooldown:
	// rate limits, overloaded or unreachable providers.
	ErrTransient = errors.New("ai: transient provider error")
	// ErrMalformedResponse marks model output that could not be decoded into
	// the requested structure.
	ErrMalformedResponse = errors.New("ai: malformed model response")
)

// Classify wraps err with ErrTransient when it looks like a rate limit,
// a 5xx answer or a network failure. Context errors and already classified
// errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrMalformedResponse) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func transientStatus(code int) bool {
	return code == 408 || code == 409 || code == 429 || code >= 500
}

func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.StatusCode)
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
