package matching

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// DefaultCandidates is the number of topics offered to the model per term.
const DefaultCandidates = 20

// Matcher picks one of candidates for term, or none.
type Matcher interface {
	Match(ctx context.Context, term, docContext string, candidates []string) (Result, error)
}

// LLMMatcher asks a language model and parses its answer with ParseAnswer.
type LLMMatcher struct {
	client        ai.GraphAIClient
	minConfidence float64
}

// NewLLMMatcher returns a matcher. minConfidence <= 0 uses
// DefaultMinConfidence.
func NewLLMMatcher(client ai.GraphAIClient, minConfidence float64) *LLMMatcher {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &LLMMatcher{client: client, minConfidence: minConfidence}
}

// Match returns Unmatched for every answer it cannot trust. Only errors of
// the model call itself are returned.
func (m *LLMMatcher) Match(ctx context.Context, term, docContext string, candidates []string) (Result, error) {
	if len(candidates) == 0 {
		return Unmatch("no candidates"), nil
	}
	prompt := fmt.Sprintf(ai.TopicMatchPrompt, term, docContext, strings.Join(candidates, "\n"), term)
	raw, err := m.client.GenerateCompletion(ctx, prompt, ai.WithTemperature(0))
	if err != nil {
		return Result{}, err
	}
	return ParseAnswer(raw, candidates, m.minConfidence), nil
}

// MapReport is the outcome of mapping one paper.
type MapReport struct {
	PaperID   string   `json:"paper_id"`
	Exact     []string `json:"exact"`
	Semantic  []string `json:"semantic"`
	Unmatched []string `json:"unmatched"`
	Failed    []string `json:"failed"`
}

// Mapper links papers to topics.
type Mapper struct {
	store      store.GraphStore
	matcher    Matcher
	candidates int
}

// NewMapper returns a mapper offering up to candidates topics per term.
func NewMapper(s store.GraphStore, matcher Matcher, candidates int) *Mapper {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	return &Mapper{store: s, matcher: matcher, candidates: candidates}
}

// MapPaper links the paper to a topic for every term it can match. A term
// whose canonical form is a topic matches exactly; the others go to the
// matcher with the topics sharing the most words as candidates. Every match
// is stored as a HAS_TOPIC edge. A term that fails is reported and skipped.
func (m *Mapper) MapPaper(ctx context.Context, paperID string, terms []string, docContext string) (*MapReport, error) {
	report := &MapReport{PaperID: paperID}

	nodes, err := m.store.Nodes(ctx, store.LabelTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to read topics: %w", err)
	}
	topics := make(map[string]common.Topic, len(nodes))
	order := make([]common.Topic, 0, len(nodes))
	for _, n := range nodes {
		t := common.Topic{Canonical: n.Key, Label: n.Props.String("label")}
		if t.Label == "" {
			t.Label = n.Key
		}
		topics[n.Key] = t
		order = append(order, t)
	}

	paper := store.NodeRef{Label: store.LabelPaper, Key: paperID}
	if _, err := m.store.UpsertNode(ctx, paper.Label, paper.Key, func(current store.Props, exists bool) store.Props {
		if current == nil {
			return store.Props{}
		}
		return current
	}); err != nil {
		return nil, fmt.Errorf("failed to upsert paper: %w", err)
	}

	seen := make(map[string]struct{})
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		form := canon.Canonicalize(term)
		if canon.IsSentinel(form) {
			continue
		}
		if _, dup := seen[form]; dup {
			continue
		}
		seen[form] = struct{}{}

		var res Result
		method := "exact"
		if _, ok := topics[form]; ok {
			res = Result{Kind: Matched, Topic: form, Confidence: 1}
		} else {
			method = "semantic"
			candidates := Candidates(term, order, m.candidates)
			res, err = m.matcher.Match(ctx, term, docContext, candidates)
			if err != nil {
				logger.Warn("[Matching] Matcher failed", "paper", paperID, "term", term, "err", err)
				report.Failed = append(report.Failed, term)
				continue
			}
			if res.Kind == Matched {
				if _, ok := topics[res.Topic]; !ok {
					res = Unmatch("topic not in graph")
				}
			}
		}

		if res.Kind != Matched {
			logger.Debug("[Matching] Term unmatched", "paper", paperID, "term", term, "reason", res.Reason)
			report.Unmatched = append(report.Unmatched, term)
			continue
		}

		err = m.store.UpsertEdge(ctx, store.Edge{
			Type: store.RelHasTopic,
			From: paper,
			To:   store.NodeRef{Label: store.LabelTopic, Key: res.Topic},
			Props: store.Props{
				"term":       term,
				"method":     method,
				"confidence": res.Confidence,
			},
		})
		if err != nil {
			logger.Error("[Matching] Failed to link topic", "paper", paperID, "topic", res.Topic, "err", err)
			report.Failed = append(report.Failed, term)
			continue
		}
		if method == "exact" {
			report.Exact = append(report.Exact, res.Topic)
		} else {
			report.Semantic = append(report.Semantic, res.Topic)
		}
	}

	logger.Info("[Matching] Paper mapped",
		"paper", paperID,
		"exact", len(report.Exact),
		"semantic", len(report.Semantic),
		"unmatched", len(report.Unmatched),
		"failed", len(report.Failed),
	)
	return report, nil
}

// Candidates returns the display labels of up to limit topics sharing at
// least one word with term, most shared words first.
func Candidates(term string, topics []common.Topic, limit int) []string {
	words := strings.Fields(canon.Canonicalize(term))
	if len(words) == 0 {
		return nil
	}

	type scored struct {
		label string
		score int
	}
	var hits []scored
	for _, t := range topics {
		score := 0
		topicWords := strings.Fields(t.Canonical)
		for _, w := range words {
			if slices.Contains(topicWords, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{label: t.Label, score: score})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		return b.score - a.score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.label
	}
	return out
}
