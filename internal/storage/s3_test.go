package storage

import (
	"errors"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{uri: "s3://ontologies/cso/v3.4.csv", bucket: "ontologies", key: "cso/v3.4.csv"},
		{uri: "s3://b/k.json", bucket: "b", key: "k.json"},
		{uri: "s3://bucket-only", wantErr: true},
		{uri: "s3:///key", wantErr: true},
		{uri: "/tmp/cso.csv", wantErr: true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseURI(tt.uri)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURI) {
				t.Fatalf("ParseURI(%q) expected ErrInvalidURI, got %v", tt.uri, err)
			}
			continue
		}
		if err != nil || bucket != tt.bucket || key != tt.key {
			t.Fatalf("ParseURI(%q) = %q, %q, %v", tt.uri, bucket, key, err)
		}
	}
}

func TestReportKey(t *testing.T) {
	if got := ReportKey("mining", "abc"); got != "reports/mining/abc.json" {
		t.Fatalf("ReportKey() = %q", got)
	}
	if !IsURI("s3://a/b") || IsURI("a/b") {
		t.Fatal("IsURI mismatch")
	}
}
