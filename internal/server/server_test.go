package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/config"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai/aitest"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store/memory"

	"github.com/rabbitmq/amqp091-go"
)

type recordingChannel struct {
	keys   []string
	bodies [][]byte
}

func (r *recordingChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	r.keys = append(r.keys, key)
	r.bodies = append(r.bodies, msg.Body)
	return nil
}

func newTestServer(t *testing.T, apiKey string) (*recordingChannel, http.Handler, store.GraphStore) {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	for key, label := range map[string]string{
		"machine learning": "Machine Learning",
		"neural network":   "Neural Networks",
		"graph database":   "Graph Databases",
	} {
		_, err := s.UpsertNode(ctx, store.LabelTopic, key, func(store.Props, bool) store.Props {
			return store.Props{"label": label}
		})
		if err != nil {
			t.Fatalf("UpsertNode() error = %v", err)
		}
	}
	err := s.UpsertEdge(ctx, store.Edge{
		Type: store.RelSubTopicOf,
		From: store.NodeRef{Label: store.LabelTopic, Key: "neural network"},
		To:   store.NodeRef{Label: store.LabelTopic, Key: "machine learning"},
	})
	if err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}

	a := &app.App{
		Config: &config.Config{APIKey: apiKey, MaxDepth: 4, LeaseTTL: time.Minute},
		Store:  s,
		AI:     aitest.New(),
		Locker: leaselock.NewLocal(),
	}
	ch := &recordingChannel{}
	return ch, New(a, ch), s
}

func do(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	_, h, _ := newTestServer(t, "secret")
	if rec := do(h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
}

func TestAPIKey(t *testing.T) {
	_, h, _ := newTestServer(t, "secret")
	tests := []struct {
		headers map[string]string
		want    int
	}{
		{headers: nil, want: http.StatusUnauthorized},
		{headers: map[string]string{"X-API-Key": "wrong"}, want: http.StatusUnauthorized},
		{headers: map[string]string{"X-API-Key": "secret"}, want: http.StatusOK},
		{headers: map[string]string{"Authorization": "Bearer secret"}, want: http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(h, http.MethodGet, "/api/topics", "", tt.headers); rec.Code != tt.want {
			t.Fatalf("GET /api/topics with %v = %d, want %d", tt.headers, rec.Code, tt.want)
		}
	}
}

func TestEnqueueJob(t *testing.T) {
	ch, h, _ := newTestServer(t, "")

	rec := do(h, http.MethodPost, "/api/jobs/combination", `{"paper_ids":["p1","p2"],"max_k":2}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/jobs/combination = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.JobID == "" || len(ch.keys) != 1 || ch.keys[0] != "combination_queue" {
		t.Fatalf("unexpected publish %v, response %s", ch.keys, rec.Body.String())
	}

	if rec := do(h, http.MethodPost, "/api/jobs/merge", "", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/jobs/merge = %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/jobs/combination", `{"paper_ids":[]}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/jobs/index", `{}`, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", rec.Code)
	}
	if len(ch.keys) != 2 {
		t.Fatalf("expected 2 published jobs, got %v", ch.keys)
	}
}

func TestTopics(t *testing.T) {
	_, h, _ := newTestServer(t, "")

	rec := do(h, http.MethodGet, "/api/topics?q=Network", "", nil)
	var list struct {
		Topics []struct {
			Canonical string `json:"label_norm"`
		} `json:"topics"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if rec.Code != http.StatusOK || len(list.Topics) != 1 || list.Topics[0].Canonical != "neural network" {
		t.Fatalf("GET /api/topics?q = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/api/topics/depth?label=Neural+Networks", "", nil)
	var depth struct {
		Canonical string `json:"canonical"`
		Depth     int    `json:"depth"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &depth)
	if depth.Canonical != "neural network" || depth.Depth != 2 {
		t.Fatalf("GET /api/topics/depth = %s", rec.Body.String())
	}

	if rec := do(h, http.MethodGet, "/api/topics/depth", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without label, got %d", rec.Code)
	}
}

func TestCanonicalize(t *testing.T) {
	_, h, _ := newTestServer(t, "")

	rec := do(h, http.MethodPost, "/api/canonicalize", `{"labels":["Neural Networks","neural network (NN)",""]}`, nil)
	var resp struct {
		Forms []struct {
			Canonical string `json:"canonical"`
		} `json:"forms"`
		Items []string `json:"items"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || len(resp.Forms) != 3 {
		t.Fatalf("POST /api/canonicalize = %d %s", rec.Code, rec.Body.String())
	}
	if resp.Forms[0].Canonical != "neural network" || resp.Forms[2].Canonical != "unknown" {
		t.Fatalf("unexpected forms %+v", resp.Forms)
	}
	if len(resp.Items) != 1 || resp.Items[0] != "neural network" {
		t.Fatalf("unexpected items %v", resp.Items)
	}

	if rec := do(h, http.MethodPost, "/api/canonicalize", `{"labels":[]}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty labels, got %d", rec.Code)
	}
}
