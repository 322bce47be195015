package combination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// DefaultMaxK is the largest combination size computed by default.
const DefaultMaxK = 3

// Proposer suggests combinations of a paper's topics.
type Proposer interface {
	Propose(ctx context.Context, paperID string, items []string, k int) ([][]string, error)
}

// PaperError reports a paper whose combinations could not be computed or
// stored.
type PaperError struct {
	PaperID string
	Err     error
}

func (e PaperError) Error() string {
	return fmt.Sprintf("paper %s: %v", e.PaperID, e.Err)
}

func (e PaperError) Unwrap() error {
	return e.Err
}

func (e PaperError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"paper_id": e.PaperID, "error": e.Err.Error()})
}

// BatchReport is the outcome of ForPapers.
type BatchReport struct {
	Combinations map[string][]common.Combination `json:"combinations"`
	Errors       []PaperError                    `json:"errors"`
}

// Service computes and stores paper combinations.
type Service struct {
	proposer Proposer
	store    store.GraphStore
}

// NewService returns a service. A nil store disables persistence and
// ForPapers.
func NewService(proposer Proposer, s store.GraphStore) *Service {
	return &Service{proposer: proposer, store: s}
}

// CombinationsFor computes the combinations of items with up to
// min(len(items), maxK) elements. maxK <= 0 means DefaultMaxK, not every
// size; pass len(items) to get all subsets. Proposals are validated; with repair the
// exhaustive enumeration fills whatever the proposer missed, so the result is
// complete even if the proposer fails. Without repair a proposer error is
// returned and the result may miss combinations.
//
// The combinations are stored as TopicCombination nodes linked from the paper
// in one transaction.
func (s *Service) CombinationsFor(
	ctx context.Context,
	paperID string,
	items []string,
	maxK int,
	repair bool,
) ([]common.Combination, error) {
	items = canon.Items(items)
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	k := min(len(items), maxK)
	if k == 0 {
		return nil, nil
	}

	var combos []common.Combination
	proposals, err := s.proposer.Propose(ctx, paperID, items, k)
	switch {
	case err == nil:
		combos = Validate(proposals, items, k)
		if dropped := len(proposals) - len(combos); dropped > 0 {
			logger.Debug("[Combination] Dropped proposals", "paper", paperID, "dropped", dropped)
		}
	case repair && ctx.Err() == nil:
		logger.Warn("[Combination] Proposer failed, using enumeration", "paper", paperID, "err", err)
	default:
		return nil, fmt.Errorf("failed to propose combinations: %w", err)
	}

	if repair {
		before := len(combos)
		combos = Union(combos, Enumerate(items, k))
		if added := len(combos) - before; added > 0 {
			logger.Debug("[Combination] Repaired missing combinations", "paper", paperID, "added", added)
		}
	} else {
		Sort(combos)
	}

	if s.store != nil {
		if err := s.persist(ctx, paperID, combos); err != nil {
			return nil, fmt.Errorf("failed to store combinations: %w", err)
		}
	}
	return combos, nil
}

// ForPapers computes the combinations of every paper from its HAS_TOPIC
// edges. A failing paper is reported and the batch continues.
func (s *Service) ForPapers(ctx context.Context, paperIDs []string, maxK int, repair bool) (*BatchReport, error) {
	if s.store == nil {
		return nil, fmt.Errorf("combination service has no store")
	}
	report := &BatchReport{Combinations: make(map[string][]common.Combination, len(paperIDs))}
	for _, id := range paperIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		items, err := PaperTopics(ctx, s.store, id)
		if err == nil {
			var combos []common.Combination
			combos, err = s.CombinationsFor(ctx, id, items, maxK, repair)
			if err == nil {
				report.Combinations[id] = combos
				continue
			}
		}
		logger.Error("[Combination] Paper failed", "paper", id, "err", err)
		report.Errors = append(report.Errors, PaperError{PaperID: id, Err: err})
	}
	logger.Info("[Combination] Batch finished", "papers", len(paperIDs), "failed", len(report.Errors))
	return report, nil
}

// PaperTopics returns the canonical topics linked from a paper.
func PaperTopics(ctx context.Context, r store.Reader, paperID string) ([]string, error) {
	edges, err := r.Edges(ctx, store.EdgeQuery{
		Type:      store.RelHasTopic,
		FromLabel: store.LabelPaper,
		ToLabel:   store.LabelTopic,
		FromKey:   paperID,
	})
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, len(edges))
	for _, e := range edges {
		items = append(items, e.To.Key)
	}
	return canon.Items(items), nil
}

func (s *Service) persist(ctx context.Context, paperID string, combos []common.Combination) error {
	return s.store.Atomic(ctx, func(tx store.Tx) error {
		paper := store.NodeRef{Label: store.LabelPaper, Key: paperID}
		if _, err := tx.UpsertNode(ctx, paper.Label, paper.Key, keepProps); err != nil {
			return err
		}
		for _, c := range combos {
			ref := store.NodeRef{Label: store.LabelCombination, Key: canon.Key(c)}
			items := []string(c)
			_, err := tx.UpsertNode(ctx, ref.Label, ref.Key, func(current store.Props, exists bool) store.Props {
				next := current.Clone()
				if next == nil {
					next = store.Props{}
				}
				next["items"] = append([]string(nil), items...)
				next["size"] = len(items)
				return next
			})
			if err != nil {
				return err
			}
			if err := tx.UpsertEdge(ctx, store.Edge{Type: store.RelHasCombination, From: paper, To: ref}); err != nil {
				return err
			}
		}
		return nil
	})
}

func keepProps(current store.Props, exists bool) store.Props {
	if current == nil {
		return store.Props{}
	}
	return current
}
