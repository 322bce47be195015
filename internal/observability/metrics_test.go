package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLLM_CountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(LLMRequests.WithLabelValues("test_op", "error"))
	ObserveLLM("test_op", time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(LLMRequests.WithLabelValues("test_op", "error"))
	if after-before != 1 {
		t.Fatalf("expected error counter to increase by 1, got %v", after-before)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	JobsProcessed.WithLabelValues("merge", "ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "scholargraph_jobs_processed_total") {
		t.Fatalf("metrics output missing job counter")
	}
}
