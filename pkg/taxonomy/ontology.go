package taxonomy

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
)

const (
	predicateLabel        = "http://www.w3.org/2000/01/rdf-schema#label"
	predicateSuperTopicOf = "http://cso.kmi.open.ac.uk/schema/cso#superTopicOf"
)

// ErrUnknownFormat is returned for ontology files that are neither JSON nor
// CSV.
var ErrUnknownFormat = errors.New("taxonomy: unknown ontology format")

// Ontology is a parsed snapshot. Topics are in file order, the root label is
// already removed.
type Ontology struct {
	Topics    []common.SourceTopic   `json:"topics"`
	Hierarchy []common.HierarchyEdge `json:"hierarchy"`
}

// ParseOntology picks the parser from the extension of name.
func ParseOntology(name string, r io.Reader) (*Ontology, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return ParseOntologyJSON(r)
	case ".csv":
		return ParseCSO(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// ParseOntologyJSON reads {"topics":[{"uri","label"}],"hierarchy":[{"sub","super"}]}.
func ParseOntologyJSON(r io.Reader) (*Ontology, error) {
	var o Ontology
	if err := json.NewDecoder(r).Decode(&o); err != nil {
		return nil, fmt.Errorf("failed to decode ontology: %w", err)
	}
	o.Topics = withoutRoot(o.Topics)
	return &o, nil
}

// ParseCSO reads the CSV triple dump of the Computer Science Ontology. Each
// row is subject, predicate and object; rdfs:label rows name topics and
// cso:superTopicOf rows link a super topic to a sub topic. Other predicates
// are ignored. A topic with several labels keeps the first one.
//
//	"<https://cso.kmi.open.ac.uk/topics/ai>","<http://www.w3.org/2000/01/rdf-schema#label>","""artificial intelligence""@en"
func ParseCSO(r io.Reader) (*Ontology, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	o := &Ontology{}
	labelled := make(map[string]struct{})
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ontology line %d: %w", line, err)
		}
		if len(record) < 3 {
			continue
		}
		subject := unwrapIRI(record[0])
		predicate := unwrapIRI(record[1])

		switch predicate {
		case predicateLabel:
			if _, ok := labelled[subject]; ok {
				continue
			}
			labelled[subject] = struct{}{}
			o.Topics = append(o.Topics, common.SourceTopic{Key: subject, Label: unwrapLiteral(record[2])})
		case predicateSuperTopicOf:
			o.Hierarchy = append(o.Hierarchy, common.HierarchyEdge{Sub: unwrapIRI(record[2]), Super: subject})
		}
	}
	o.Topics = withoutRoot(o.Topics)
	return o, nil
}

func unwrapIRI(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	return strings.TrimSuffix(s, ">")
}

// unwrapLiteral strips quotes and a language or datatype suffix.
func unwrapLiteral(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) {
		return s
	}
	end := strings.LastIndex(s, `"`)
	if end <= 0 {
		return strings.Trim(s, `"`)
	}
	return s[1:end]
}

func withoutRoot(topics []common.SourceTopic) []common.SourceTopic {
	out := topics[:0]
	for _, t := range topics {
		if canon.Canonicalize(t.Label) == canon.Root {
			continue
		}
		out = append(out, t)
	}
	return out
}
