package matching

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai/aitest"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store/memory"
)

var candidates = []string{"Long Short-Term Memory", "Recurrent Neural Networks", "memory management"}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Result
	}{
		{
			name: "match",
			raw:  `{"term":"lstm","matched_topic":"long short term memory","confidence":1.0,"reason":"abbreviation"}`,
			want: Result{Kind: Matched, Topic: "long short term memory", Confidence: 1, Reason: "abbreviation"},
		},
		{
			name: "fenced match with plural form",
			raw:  "```json\n{\"term\":\"rnn\",\"matched_topic\":\"Recurrent Neural Network\",\"confidence\":0.95,\"reason\":\"abstract\"}\n```",
			want: Result{Kind: Matched, Topic: "recurrent neural network", Confidence: 0.95, Reason: "abstract"},
		},
		{
			name: "none",
			raw:  `{"term":"model","matched_topic":"None","confidence":0.2,"reason":"too generic"}`,
			want: Result{Kind: Unmatched, Reason: "too generic"},
		},
		{
			name: "low confidence",
			raw:  `{"term":"memory","matched_topic":"memory management","confidence":0.85,"reason":"guess"}`,
			want: Result{Kind: Unmatched, Confidence: 0.85, Reason: "guess"},
		},
		{
			name: "outside candidates",
			raw:  `{"term":"gan","matched_topic":"generative adversarial network","confidence":1,"reason":"x"}`,
			want: Unmatch("topic outside candidates"),
		},
		{
			name: "python literal",
			raw:  `{'term': 'lstm', 'matched_topic': 'long short term memory', 'confidence': 1.0}`,
			want: Unmatch("unparseable answer"),
		},
		{
			name: "unknown field",
			raw:  `{"term":"lstm","matched_topic":"long short term memory","confidence":1,"reason":"","exec":"rm -rf"}`,
			want: Unmatch("unparseable answer"),
		},
		{
			name: "missing confidence",
			raw:  `{"term":"lstm","matched_topic":"long short term memory"}`,
			want: Unmatch("incomplete answer"),
		},
		{
			name: "trailing data",
			raw:  `{"term":"lstm","matched_topic":"long short term memory","confidence":1,"reason":""} {"x":1}`,
			want: Unmatch("trailing data after answer"),
		},
		{
			name: "prose",
			raw:  `The best match is long short term memory.`,
			want: Unmatch("unparseable answer"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnswer(tt.raw, candidates, DefaultMinConfidence)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseAnswer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	topics := []common.Topic{
		{Canonical: "memory management", Label: "Memory Management"},
		{Canonical: "long short term memory", Label: "LSTM"},
		{Canonical: "graph database", Label: "Graph Databases"},
		{Canonical: "short term memory", Label: "short-term memory"},
	}
	got := Candidates("short-term memory networks", topics, 2)
	want := []string{"LSTM", "short-term memory"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	if got := Candidates("", topics, 5); got != nil {
		t.Fatalf("expected no candidates for empty term, got %v", got)
	}
}

func seedTopics(t *testing.T, s store.GraphStore, topics map[string]string) {
	t.Helper()
	for key, label := range topics {
		_, err := s.UpsertNode(context.Background(), store.LabelTopic, key, func(store.Props, bool) store.Props {
			return store.Props{"label": label}
		})
		if err != nil {
			t.Fatalf("UpsertNode() error = %v", err)
		}
	}
}

func TestMapPaper(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTopics(t, s, map[string]string{
		"neural network":         "Neural Networks",
		"long short term memory": "Long Short-Term Memory",
		"memory management":      "Memory Management",
	})

	client := &aitest.Client{Handler: func(call aitest.Call) aitest.Reply {
		switch {
		case strings.Contains(call.Prompt, `TERM: "lstm memory"`):
			return aitest.Text(`{"term":"lstm memory","matched_topic":"Long Short-Term Memory","confidence":1,"reason":"abbreviation"}`)
		case strings.Contains(call.Prompt, `TERM: "memory leak"`):
			return aitest.Text(`{"term":"memory leak","matched_topic":"None","confidence":0,"reason":"no topic"}`)
		case strings.Contains(call.Prompt, `TERM: "memory bus"`):
			return aitest.Fail(errors.New("timeout"))
		}
		return aitest.Text("?")
	}}
	mapper := NewMapper(s, NewLLMMatcher(client, 0), 0)

	report, err := mapper.MapPaper(ctx, "p1", []string{
		"Neural Networks", "neural network (NN)", "lstm memory", "memory leak", "memory bus", "quantum", "",
	}, "Title: Sequence models")
	if err != nil {
		t.Fatalf("MapPaper() error = %v", err)
	}

	want := &MapReport{
		PaperID:   "p1",
		Exact:     []string{"neural network"},
		Semantic:  []string{"long short term memory"},
		Unmatched: []string{"memory leak", "quantum"},
		Failed:    []string{"memory bus"},
	}
	if !reflect.DeepEqual(report, want) {
		t.Fatalf("MapPaper() = %+v, want %+v", report, want)
	}

	edges, _ := s.Edges(ctx, store.EdgeQuery{Type: store.RelHasTopic, FromKey: "p1"})
	if len(edges) != 2 {
		t.Fatalf("expected two topic links, got %+v", edges)
	}
	if edges[1].Props.String("method") != "semantic" || edges[1].To.Key != "long short term memory" {
		t.Fatalf("unexpected semantic link %+v", edges[1])
	}

	// "quantum" shares no word with any topic, so only three terms reach the model
	if n := len(client.Calls()); n != 3 {
		t.Fatalf("expected 3 model calls, got %d", n)
	}
}
