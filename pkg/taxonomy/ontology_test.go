package taxonomy

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
)

const csoSample = `"<https://cso.kmi.open.ac.uk/topics/computer_science>","<http://www.w3.org/2000/01/rdf-schema#label>","""computer science""@en"
"<https://cso.kmi.open.ac.uk/topics/machine_learning>","<http://www.w3.org/2000/01/rdf-schema#label>","""machine learning""@en"
"<https://cso.kmi.open.ac.uk/topics/neural_networks>","<http://www.w3.org/2000/01/rdf-schema#label>","""neural networks""@en"
"<https://cso.kmi.open.ac.uk/topics/neural_networks>","<http://www.w3.org/2000/01/rdf-schema#label>","""artificial neural networks""@en"
"<https://cso.kmi.open.ac.uk/topics/computer_science>","<http://cso.kmi.open.ac.uk/schema/cso#superTopicOf>","<https://cso.kmi.open.ac.uk/topics/machine_learning>"
"<https://cso.kmi.open.ac.uk/topics/machine_learning>","<http://cso.kmi.open.ac.uk/schema/cso#superTopicOf>","<https://cso.kmi.open.ac.uk/topics/neural_networks>"
"<https://cso.kmi.open.ac.uk/topics/neural_networks>","<http://cso.kmi.open.ac.uk/schema/cso#relatedEquivalent>","<https://cso.kmi.open.ac.uk/topics/ann>"
`

func TestParseCSO(t *testing.T) {
	o, err := ParseCSO(strings.NewReader(csoSample))
	if err != nil {
		t.Fatalf("ParseCSO() error = %v", err)
	}

	wantTopics := []common.SourceTopic{
		{Key: "https://cso.kmi.open.ac.uk/topics/machine_learning", Label: "machine learning"},
		{Key: "https://cso.kmi.open.ac.uk/topics/neural_networks", Label: "neural networks"},
	}
	if !reflect.DeepEqual(o.Topics, wantTopics) {
		t.Fatalf("unexpected topics %+v", o.Topics)
	}
	wantEdges := []common.HierarchyEdge{
		{Sub: "https://cso.kmi.open.ac.uk/topics/machine_learning", Super: "https://cso.kmi.open.ac.uk/topics/computer_science"},
		{Sub: "https://cso.kmi.open.ac.uk/topics/neural_networks", Super: "https://cso.kmi.open.ac.uk/topics/machine_learning"},
	}
	if !reflect.DeepEqual(o.Hierarchy, wantEdges) {
		t.Fatalf("unexpected hierarchy %+v", o.Hierarchy)
	}
}

func TestParseOntology(t *testing.T) {
	doc := `{"topics":[{"uri":"u1","label":"Computer Science"},{"uri":"u2","label":"Databases"}],"hierarchy":[{"sub":"u2","super":"u1"}]}`

	o, err := ParseOntology("snapshot.JSON", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseOntology() error = %v", err)
	}
	if len(o.Topics) != 1 || o.Topics[0].Key != "u2" {
		t.Fatalf("expected root to be removed, got %+v", o.Topics)
	}
	if len(o.Hierarchy) != 1 {
		t.Fatalf("unexpected hierarchy %+v", o.Hierarchy)
	}

	if _, err := ParseOntology("cso.ttl", strings.NewReader("")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestUnwrapLiteral(t *testing.T) {
	tests := map[string]string{
		`"machine learning"@en`: "machine learning",
		`"rdf"^^<http://www.w3.org/2001/XMLSchema#string>`: "rdf",
		`plain`: "plain",
	}
	for in, want := range tests {
		if got := unwrapLiteral(in); got != want {
			t.Fatalf("unwrapLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}
