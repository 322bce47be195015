package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/config"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai/aitest"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store/memory"
)

func run(t *testing.T, load appLoader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(load)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func noApp(t *testing.T) appLoader {
	return func(context.Context, options) (*app.App, error) {
		t.Fatal("command should not open the app")
		return nil, nil
	}
}

func memoryApp(s store.GraphStore) appLoader {
	return func(context.Context, options) (*app.App, error) {
		return &app.App{
			Config: &config.Config{MaxDepth: 4, LeaseTTL: time.Minute},
			Store:  s,
			AI:     aitest.New(),
			Locker: leaselock.NewLocal(),
		}, nil
	}
}

func TestCanonicalize(t *testing.T) {
	out, err := run(t, noApp(t), "canonicalize", "Neural Networks", "Graph-Databases")
	if err != nil {
		t.Fatalf("canonicalize error = %v", err)
	}
	want := "Neural Networks\tneural network\nGraph-Databases\tgraph database\n"
	if out != want {
		t.Fatalf("canonicalize output = %q, want %q", out, want)
	}

	out, err = run(t, noApp(t), "--json", "canonicalize", "Neural Networks")
	if err != nil {
		t.Fatalf("canonicalize --json error = %v", err)
	}
	var forms map[string]string
	if err := json.Unmarshal([]byte(out), &forms); err != nil || forms["Neural Networks"] != "neural network" {
		t.Fatalf("unexpected JSON output %q (%v)", out, err)
	}
}

func seedTopic(t *testing.T, s store.GraphStore, key, label string) {
	t.Helper()
	_, err := s.UpsertNode(context.Background(), store.LabelTopic, key, func(store.Props, bool) store.Props {
		return store.Props{"label": label}
	})
	if err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}
}

func TestDepth(t *testing.T) {
	s := memory.New()
	seedTopic(t, s, "machine learning", "Machine Learning")
	seedTopic(t, s, "neural network", "Neural Networks")
	_ = s.UpsertEdge(context.Background(), store.Edge{
		Type: store.RelSubTopicOf,
		From: store.NodeRef{Label: store.LabelTopic, Key: "neural network"},
		To:   store.NodeRef{Label: store.LabelTopic, Key: "machine learning"},
	})

	out, err := run(t, memoryApp(s), "depth", "Neural Networks")
	if err != nil {
		t.Fatalf("depth error = %v", err)
	}
	if strings.TrimSpace(out) != "neural network\t2" {
		t.Fatalf("depth output = %q", out)
	}
}

func TestMergeDuplicates(t *testing.T) {
	s := memory.New()
	seedTopic(t, s, "neural network", "Neural Networks")
	seedTopic(t, s, "Neural Networks", "Neural Networks")

	out, err := run(t, memoryApp(s), "merge-duplicates")
	if err != nil {
		t.Fatalf("merge-duplicates error = %v", err)
	}
	var report struct {
		Merged int `json:"merged"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil || report.Merged != 1 {
		t.Fatalf("unexpected report %q (%v)", out, err)
	}
	nodes, _ := s.Nodes(context.Background(), store.LabelTopic)
	if len(nodes) != 1 || nodes[0].Key != "neural network" {
		t.Fatalf("expected one canonical topic, got %+v", nodes)
	}
}

func TestMatchRequiresTerms(t *testing.T) {
	if _, err := run(t, memoryApp(memory.New()), "match", "p1"); err == nil {
		t.Fatal("expected error without --term")
	}
}

func TestArgsValidated(t *testing.T) {
	if _, err := run(t, noApp(t), "depth"); err == nil {
		t.Fatal("expected error for missing label")
	}
	if _, err := run(t, noApp(t), "canonicalize"); err == nil {
		t.Fatal("expected error for missing labels")
	}
}
