// Package labeling turns raw transactions into labeled ones.
//
// The steps run in order: Rename rewrites known texts, Drop removes
// duplicates and unwanted rows, Label assigns a Label/Sublabel pair to every
// remaining row.
package labeling

import (
	"strings"

	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/log"
)

// Rename replaces every text that equals a rule's OldText. Later rules see
// the output of earlier ones.
func Rename(txs []core.Transaction, rules []config.RenameRule) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	for _, r := range rules {
		for i := range out {
			if out[i].Text == r.OldText {
				out[i].Text = r.NewText
			}
		}
	}
	return out
}

// Drop removes exact duplicate rows, keeping the first, then every row whose
// text contains one of the rule identifiers.
func Drop(txs []core.Transaction, rules []config.DropRule, logger *log.Logger) []core.Transaction {
	if logger == nil {
		logger = log.Default(log.ComponentLabeling)
	}

	seen := make(map[core.Transaction]struct{}, len(txs))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, dup := seen[tx]; dup {
			continue
		}
		seen[tx] = struct{}{}
		out = append(out, tx)
	}
	if n := len(txs) - len(out); n > 0 {
		logger.Info("Dropped duplicate transactions", log.FieldRows, n)
	}

	for _, r := range rules {
		kept := out[:0]
		dropped := 0
		for _, tx := range out {
			if strings.Contains(tx.Text, r.Identifier) {
				dropped++
				continue
			}
			kept = append(kept, tx)
		}
		out = kept
		if dropped > 0 {
			logger.Info("Dropped transactions",
				log.FieldReason, r.Reason,
				"identifier", r.Identifier,
				log.FieldRows, dropped)
		}
	}
	return out
}

// Label assigns each transaction the label of the single rule whose
// identifier its text contains. A row matched by two rules, even rules of
// the same pair, or a row matched by none, is a LabelIntegrityError.
func Label(txs []core.Transaction, rules []config.LabelRule) ([]core.LabeledTransaction, error) {
	out := make([]core.LabeledTransaction, len(txs))
	for i, tx := range txs {
		out[i] = core.LabeledTransaction{Transaction: tx}
	}

	for _, r := range rules {
		var conflicts []string
		for i := range out {
			if !strings.Contains(out[i].Text, r.Identifier) {
				continue
			}
			if out[i].Label != "" {
				conflicts = append(conflicts, out[i].Text)
				continue
			}
			out[i].Label, out[i].Sublabel = r.Label, r.Sublabel
		}
		if len(conflicts) > 0 {
			return nil, &core.LabelIntegrityError{
				Kind:     core.LabelDuplicate,
				Label:    r.Label,
				Sublabel: r.Sublabel,
				Texts:    conflicts,
			}
		}
	}

	var unlabeled []string
	for _, tx := range out {
		if tx.Label == "" {
			unlabeled = append(unlabeled, tx.Text)
		}
	}
	if len(unlabeled) > 0 {
		return nil, &core.LabelIntegrityError{Kind: core.LabelMissing, Texts: unlabeled}
	}
	return out, nil
}
