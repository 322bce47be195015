package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/observability"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/storage"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/combination"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/labels"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/matching"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/mining"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/taxonomy"
)

// ErrNoObjectStore is returned when an s3:// source is used without S3
// configuration.
var ErrNoObjectStore = errors.New("s3 is not configured")

func (a *App) taxonomyLease() leaselock.Options {
	return leaselock.Options{TTL: a.Config.LeaseTTL, Wait: true}
}

// ReadSource returns the content of a local file or an s3:// object together
// with its base name.
func (a *App) ReadSource(ctx context.Context, source string) (string, io.Reader, error) {
	if storage.IsURI(source) {
		if a.Objects == nil {
			return "", nil, ErrNoObjectStore
		}
		data, err := a.Objects.GetURI(ctx, source)
		if err != nil {
			return "", nil, err
		}
		return path.Base(source), bytes.NewReader(data), nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read ontology: %w", err)
	}
	return path.Base(source), bytes.NewReader(data), nil
}

// ImportOntology parses the snapshot at source, drops topics deeper than
// maxDepth and imports the rest under the taxonomy lease.
func (a *App) ImportOntology(ctx context.Context, source string, maxDepth int) (taxonomy.ImportReport, error) {
	name, r, err := a.ReadSource(ctx, source)
	if err != nil {
		return taxonomy.ImportReport{}, err
	}
	ont, err := taxonomy.ParseOntology(name, r)
	if err != nil {
		return taxonomy.ImportReport{}, err
	}
	if maxDepth == 0 {
		maxDepth = a.Config.MaxDepth
	}
	topics := taxonomy.FilterByDepth(ont.Topics, taxonomy.NewHierarchy(ont.Hierarchy), maxDepth)
	logger.Info("[App] Ontology parsed",
		"source", source,
		"topics", len(ont.Topics),
		"within_depth", len(topics),
		"edges", len(ont.Hierarchy),
	)

	var report taxonomy.ImportReport
	err = a.Locker.WithLease(ctx, leaselock.KeyTaxonomy, a.taxonomyLease(), func(ctx context.Context) error {
		var err error
		report, err = taxonomy.NewImporter(a.Store).Import(ctx, topics, ont.Hierarchy)
		return err
	})
	return report, err
}

// MergeDuplicates runs the duplicate merge pass under the taxonomy lease.
func (a *App) MergeDuplicates(ctx context.Context) (taxonomy.MergeReport, error) {
	var report taxonomy.MergeReport
	err := a.Locker.WithLease(ctx, leaselock.KeyTaxonomy, a.taxonomyLease(), func(ctx context.Context) error {
		var err error
		report, err = taxonomy.NewImporter(a.Store).MergeDuplicates(ctx)
		return err
	})
	observability.TopicsMerged.WithLabelValues("merged").Add(float64(report.Merged))
	observability.TopicsMerged.WithLabelValues("failed").Add(float64(report.Failed))
	return report, err
}

// LabelReport is the outcome of a validation run.
type LabelReport struct {
	Results []labels.Result `json:"results"`
	Failed  []string        `json:"failed"`
}

// NewValidator builds a label validator from the LABEL_* settings.
func (a *App) NewValidator() *labels.Validator {
	cfg := a.Config.Labels
	return labels.NewValidator(labels.NewLLMExpander(a.AI, a.Config.RootLabel), labels.Options{
		BatchSize:       cfg.BatchSize,
		TokensPerMinute: cfg.TokensPerMinute,
		SafetyMargin:    cfg.SafetyMargin,
		PromptTokens:    cfg.PromptTokens,
		Cooldown:        cfg.Cooldown,
		MaxAttempts:     cfg.MaxAttempts,
		Estimator:       ai.NewTokenEstimator(cfg.Tokenizer, cfg.CharsPerToken),
	})
}

// ValidateLabels expands labels. With no labels given, the labels of every
// persisted topic are validated.
func (a *App) ValidateLabels(ctx context.Context, input []string) (*LabelReport, error) {
	if len(input) == 0 {
		topics, err := taxonomy.Topics(ctx, a.Store)
		if err != nil {
			return nil, err
		}
		for _, t := range topics {
			input = append(input, t.Label)
		}
	}

	results, itemErrs, err := a.NewValidator().ValidateBatch(ctx, input)
	if err != nil {
		return nil, err
	}
	report := &LabelReport{Results: results}
	for _, e := range itemErrs {
		report.Failed = append(report.Failed, e.Label)
	}
	observability.LabelsValidated.WithLabelValues("validated").Add(float64(len(results)))
	observability.LabelsValidated.WithLabelValues("failed").Add(float64(len(itemErrs)))
	return report, nil
}

// MiningParams returns the MINING_* defaults overridden by the non-zero
// fields of p.
func (a *App) MiningParams(p mining.Params) mining.Params {
	cfg := a.Config.Mining
	if p.MinSupportCount == 0 {
		p.MinSupportCount = cfg.MinSupportCount
	}
	if p.MinConfidence == 0 {
		p.MinConfidence = cfg.MinConfidence
	}
	if p.MaxItemsetSize == 0 {
		p.MaxItemsetSize = cfg.MaxItemsetSize
	}
	return p
}

// Mine mines the paper-topic transactions stored in the graph.
func (a *App) Mine(ctx context.Context, params mining.Params) (*mining.Result, error) {
	transactions, err := mining.LoadTransactions(ctx, a.Store)
	if err != nil {
		return nil, err
	}
	result, err := mining.NewMiner(mining.NewLLMProposer(a.AI), a.Store).Mine(ctx, transactions, a.MiningParams(params))
	if result != nil {
		observability.ProposalsDropped.WithLabelValues("itemset").Add(float64(result.DroppedItemsets))
		observability.ProposalsDropped.WithLabelValues("rule").Add(float64(result.DroppedRules))
	}
	return result, err
}

// Combinations computes topic combinations for papers. maxK <= 0 and a nil
// repair take the COMBINATION_* defaults.
func (a *App) Combinations(ctx context.Context, paperIDs []string, maxK int, repair *bool) (*combination.BatchReport, error) {
	if maxK <= 0 {
		maxK = a.Config.Combination.MaxK
	}
	doRepair := a.Config.Combination.Repair
	if repair != nil {
		doRepair = *repair
	}
	svc := combination.NewService(combination.NewLLMProposer(a.AI), a.Store)
	return svc.ForPapers(ctx, paperIDs, maxK, doRepair)
}

// MapPaper links a paper to the topics its terms match.
func (a *App) MapPaper(ctx context.Context, paperID string, terms []string, docContext string) (*matching.MapReport, error) {
	matcher := matching.NewLLMMatcher(a.AI, a.Config.Matching.MinConfidence)
	return matching.NewMapper(a.Store, matcher, matching.DefaultCandidates).MapPaper(ctx, paperID, terms, docContext)
}

// TopicDepth resolves the depth of label in the persisted hierarchy.
func (a *App) TopicDepth(ctx context.Context, label string) (string, int, error) {
	h, err := taxonomy.LoadHierarchy(ctx, a.Store)
	if err != nil {
		return "", 0, err
	}
	form := canon.Canonicalize(label)
	return form, taxonomy.Depth(form, h, a.Config.MaxDepth), nil
}

// SaveReport uploads v as JSON to reports/<kind>/<jobID>.json. Without S3 it
// only logs.
func (a *App) SaveReport(ctx context.Context, kind, jobID string, v any) error {
	if a.Objects == nil {
		logger.Debug("[App] S3 not configured, report not uploaded", "kind", kind, "job_id", jobID)
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	key := storage.ReportKey(kind, jobID)
	if err := a.Objects.Put(ctx, key, data); err != nil {
		return err
	}
	logger.Info("[App] Report uploaded", "key", key)
	return nil
}
