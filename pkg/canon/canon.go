// Package canon turns free-form topic labels into the canonical keys that
// identify topics across the graph.
//
// A canonical label is lowercase, has no parenthetical qualifiers, uses single
// spaces between words and carries a singular last word. Two labels denote the
// same topic if and only if their canonical forms are byte-equal.
package canon

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

const (
	// Unknown is returned for labels that carry no usable text.
	Unknown = "unknown"
	// Root is returned for the root domain label of the ontology. It never
	// appears as a topic in the taxonomy.
	Root = "<root>"
	// DefaultRootLabel is the root of the Computer Science Ontology.
	DefaultRootLabel = "computer science"
)

var reParenthetical = regexp.MustCompile(`\([^()]*\)`)

var rootForm atomic.Pointer[string]

func init() {
	SetRootLabel(DefaultRootLabel)
}

// SetRootLabel configures the label that canonicalizes to Root. It is meant to
// be called once during startup, before any canonicalization happens.
func SetRootLabel(label string) {
	form := singularizeLast(Normalize(label))
	rootForm.Store(&form)
}

// RootLabel returns the canonical form of the configured root label.
func RootLabel() string {
	return *rootForm.Load()
}

// Normalize lowercases the label, replaces hyphens with spaces, removes every
// parenthetical "(...)" and collapses whitespace. It does not singularize.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.NewReplacer("-", " ", "‐", " ").Replace(s)
	for {
		stripped := reParenthetical.ReplaceAllString(s, " ")
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.Join(strings.Fields(s), " ")
}

// Canonicalize returns the canonical form of label. It never fails: labels
// without content yield Unknown and the configured root label yields Root.
//
//	Canonicalize("Neural Networks")     // "neural network"
//	Canonicalize("neural network (NN)") // "neural network"
//	Canonicalize("Graph-Databases")     // "graph database"
func Canonicalize(label string) string {
	s := Normalize(label)
	if s == "" {
		return Unknown
	}
	s = singularizeLast(s)
	if s == RootLabel() {
		return Root
	}
	return s
}

// IsSentinel reports whether form is one of the reserved canonical values.
func IsSentinel(form string) bool {
	return form == Unknown || form == Root
}

func singularizeLast(s string) string {
	idx := strings.LastIndexByte(s, ' ')
	if idx < 0 {
		return singularize(s)
	}
	return s[:idx+1] + singularize(s[idx+1:])
}

func singularize(w string) string {
	n := len(w)
	switch {
	case strings.HasSuffix(w, "ies") && n > 3:
		return w[:n-3] + "y"
	case (strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "shes") || strings.HasSuffix(w, "ches")) && n > 4:
		return w[:n-2]
	case strings.HasSuffix(w, "es") && n-2 > 3 && strings.ContainsAny(w[n-3:n-2], "xzo"):
		return w[:n-2]
	case strings.HasSuffix(w, "s") && n-1 > 3 && !strings.HasSuffix(w, "ss"):
		return w[:n-1]
	}
	return w
}

// Items canonicalizes every label, drops sentinel forms and duplicates and
// returns the remaining items in lexical order.
func Items(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		c := Canonicalize(l)
		if IsSentinel(c) {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// StrictItems is Items for lists that must be taken as given. ok is false
// when a label has no canonical form, is the root label or collapses onto
// another label of the list.
func StrictItems(labels []string) (items []string, ok bool) {
	items = Items(labels)
	return items, len(items) == len(labels)
}

// Key returns the storage key of an item set: the JSON encoding of its
// canonical, sorted, deduplicated items.
func Key(items []string) string {
	b, _ := json.Marshal(Items(items))
	return string(b)
}

// Contains reports whether the sorted slice items holds item.
func Contains(items []string, item string) bool {
	i := sort.SearchStrings(items, item)
	return i < len(items) && items[i] == item
}
