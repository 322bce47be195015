// Package matching maps free-text terms of a paper onto existing topics.
// Model answers are parsed strictly; anything unexpected counts as no match.
package matching

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
)

// DefaultMinConfidence is the lowest confidence accepted from the model.
const DefaultMinConfidence = 0.9

// Kind tells whether a term was matched.
type Kind int

const (
	Unmatched Kind = iota
	Matched
)

func (k Kind) String() string {
	if k == Matched {
		return "matched"
	}
	return "unmatched"
}

// Result is the outcome of matching one term. Topic is the canonical label of
// the matched topic and empty for Unmatched.
type Result struct {
	Kind       Kind
	Topic      string
	Confidence float64
	Reason     string
}

// Unmatch returns an Unmatched result carrying reason.
func Unmatch(reason string) Result {
	return Result{Kind: Unmatched, Reason: reason}
}

type matchAnswer struct {
	Term         string   `json:"term"`
	MatchedTopic *string  `json:"matched_topic"`
	Confidence   *float64 `json:"confidence"`
	Reason       string   `json:"reason"`
}

// ParseAnswer decodes a model answer against the candidate topics. It fails
// closed: malformed JSON, unknown fields, a missing or "None" topic, a
// confidence below minConfidence or a topic outside candidates all yield
// Unmatched.
func ParseAnswer(raw string, candidates []string, minConfidence float64) Result {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	dec.DisallowUnknownFields()
	var ans matchAnswer
	if err := dec.Decode(&ans); err != nil {
		return Unmatch("unparseable answer")
	}
	if dec.More() {
		return Unmatch("trailing data after answer")
	}
	if ans.MatchedTopic == nil || ans.Confidence == nil {
		return Unmatch("incomplete answer")
	}

	topic := strings.TrimSpace(*ans.MatchedTopic)
	if topic == "" || strings.EqualFold(topic, "none") {
		return Unmatch(ans.Reason)
	}
	if *ans.Confidence < minConfidence || *ans.Confidence > 1 {
		return Result{Kind: Unmatched, Confidence: *ans.Confidence, Reason: ans.Reason}
	}

	form := canon.Canonicalize(topic)
	if canon.IsSentinel(form) {
		return Unmatch(ans.Reason)
	}
	for _, c := range candidates {
		if canon.Canonicalize(c) == form {
			return Result{Kind: Matched, Topic: form, Confidence: *ans.Confidence, Reason: ans.Reason}
		}
	}
	return Unmatch("topic outside candidates")
}
