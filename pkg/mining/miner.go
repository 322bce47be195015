// Package mining finds frequent topic sets and association rules over
// paper-topic transactions and stores them in the graph.
package mining

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/common"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
)

// Params are the mining thresholds handed to the Proposer. Zero fields take
// the defaults.
type Params struct {
	MinSupportCount int     `json:"min_support_count" validate:"omitempty,min=1"`
	MinConfidence   float64 `json:"min_confidence" validate:"omitempty,min=0,max=1"`
	MaxItemsetSize  int     `json:"max_itemset_size" validate:"omitempty,min=1"`
}

// DefaultParams returns min support count 2, min confidence 0.7 and at most
// five items per set.
func DefaultParams() Params {
	return Params{MinSupportCount: 2, MinConfidence: 0.7, MaxItemsetSize: 5}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MinSupportCount <= 0 {
		p.MinSupportCount = d.MinSupportCount
	}
	if p.MinConfidence <= 0 || p.MinConfidence > 1 {
		p.MinConfidence = d.MinConfidence
	}
	if p.MaxItemsetSize <= 0 {
		p.MaxItemsetSize = d.MaxItemsetSize
	}
	return p
}

// Proposal is what a Proposer claims about the transactions.
type Proposal struct {
	Itemsets []common.FrequentItemset
	Rules    []common.AssociationRule
}

// Proposer computes candidate itemsets and rules. Its support and confidence
// values are trusted; only the structure of its answer is checked.
type Proposer interface {
	Propose(ctx context.Context, transactions []common.Transaction, params Params) (Proposal, error)
}

// Result is the outcome of one mining run.
type Result struct {
	Transactions    int                      `json:"transactions"`
	Params          Params                   `json:"params"`
	Itemsets        []common.FrequentItemset `json:"itemsets"`
	Rules           []common.AssociationRule `json:"rules"`
	DroppedItemsets int                      `json:"dropped_itemsets"`
	DroppedRules    int                      `json:"dropped_rules"`
	PersistFailures int                      `json:"persist_failures"`
}

// Miner validates proposals and persists what survives. A nil writer skips
// persistence.
type Miner struct {
	proposer Proposer
	writer   store.Writer
}

// NewMiner returns a miner.
func NewMiner(proposer Proposer, writer store.Writer) *Miner {
	return &Miner{proposer: proposer, writer: writer}
}

// Mine canonicalizes transactions, asks the proposer, drops structurally
// invalid itemsets and rules, logs the audit trail and persists the rest.
//
//	transactions: p1{ml,nn} p2{ml,db} p3{ml,nn}, MinSupportCount 2
//	-> {ml} support_count 3, {ml,nn} support_count 2 support 0.667
func (m *Miner) Mine(ctx context.Context, transactions []common.Transaction, params Params) (*Result, error) {
	params = params.withDefaults()
	prepared := PrepareTransactions(transactions)
	result := &Result{Transactions: len(prepared), Params: params}
	if len(prepared) == 0 {
		logger.Info("[Mining] No transactions to mine")
		return result, nil
	}

	logger.Info("[Mining] Proposing itemsets", "transactions", len(prepared),
		"min_support_count", params.MinSupportCount,
		"min_confidence", params.MinConfidence,
		"max_itemset_size", params.MaxItemsetSize,
	)
	proposal, err := m.proposer.Propose(ctx, prepared, params)
	if err != nil {
		return nil, fmt.Errorf("failed to propose itemsets: %w", err)
	}

	seenSets := make(map[string]struct{})
	for _, set := range proposal.Itemsets {
		valid, err := ValidateItemset(set, params.MaxItemsetSize)
		if err != nil {
			logger.Warn("[Mining] Dropping itemset", "items", set.Items, "err", err)
			result.DroppedItemsets++
			continue
		}
		key := canon.Key(valid.Items)
		if _, dup := seenSets[key]; dup {
			result.DroppedItemsets++
			continue
		}
		seenSets[key] = struct{}{}
		result.Itemsets = append(result.Itemsets, valid)
	}

	seenRules := make(map[string]struct{})
	for _, rule := range proposal.Rules {
		valid, err := ValidateRule(rule)
		if err != nil {
			logger.Warn("[Mining] Dropping rule", "antecedent", rule.Antecedent, "consequent", rule.Consequent, "err", err)
			result.DroppedRules++
			continue
		}
		key := canon.Key(valid.Antecedent) + "->" + canon.Key(valid.Consequent)
		if _, dup := seenRules[key]; dup {
			result.DroppedRules++
			continue
		}
		seenRules[key] = struct{}{}
		result.Rules = append(result.Rules, valid)
	}

	logAudit(result.Itemsets, params.MinSupportCount)

	if m.writer != nil {
		result.PersistFailures = m.persist(ctx, result)
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	logger.Info("[Mining] Mining finished",
		"itemsets", len(result.Itemsets),
		"rules", len(result.Rules),
		"dropped_itemsets", result.DroppedItemsets,
		"dropped_rules", result.DroppedRules,
		"persist_failures", result.PersistFailures,
	)
	return result, nil
}

// PrepareTransactions canonicalizes and deduplicates the items of every
// transaction and drops transactions left empty.
func PrepareTransactions(transactions []common.Transaction) []common.Transaction {
	out := make([]common.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		items := canon.Items(tx.Items)
		if len(items) == 0 {
			continue
		}
		out = append(out, common.Transaction{EntityID: tx.EntityID, Items: items})
	}
	return out
}

func logAudit(sets []common.FrequentItemset, minSupportCount int) {
	sorted := SortForAudit(sets)
	group := -1
	for _, s := range sorted {
		if s.SupportCount != group {
			group = s.SupportCount
			logger.Info("[Step2] Support group", "support_count", group)
		}
		logger.Info("[Step2] Frequent itemset",
			"items", strings.Join(s.Items, ", "),
			"size", len(s.Items),
			"support_count", s.SupportCount,
			"support", fmt.Sprintf("%.3f", s.Support),
		)
	}

	for _, s := range LargestFrequent(sets, minSupportCount) {
		logger.Info("[Step3] Largest frequent itemset", "items", strings.Join(s.Items, ", "), "support_count", s.SupportCount)
		for _, sp := range Splits(s.Items) {
			logger.Info("[Step3] Candidate rule",
				"antecedent", strings.Join(sp.Antecedent, ", "),
				"consequent", strings.Join(sp.Consequent, ", "),
			)
		}
	}
}
