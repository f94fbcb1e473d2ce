package monthly

import (
	"slices"
	"strings"

	"myfinances/internal/core"
	"myfinances/internal/log"
)

// AllLabels returns the distinct labels of every stored row, sorted.
func (t *Transactions) AllLabels() []string {
	return distinctLabels(t.all)
}

// ActiveLabels returns the distinct labels of the current view, sorted.
func (t *Transactions) ActiveLabels() []string {
	return distinctLabels(t.Transactions())
}

// Sublabels maps every stored label to its sorted sublabels.
func (t *Transactions) Sublabels() map[string][]string {
	out := make(map[string][]string)
	for _, tx := range t.all {
		if !slices.Contains(out[tx.Label], tx.Sublabel) {
			out[tx.Label] = append(out[tx.Label], tx.Sublabel)
		}
	}
	for _, subs := range out {
		slices.Sort(subs)
	}
	return out
}

func distinctLabels(txs []core.LabeledTransaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, tx := range txs {
		if _, ok := seen[tx.Label]; ok {
			continue
		}
		seen[tx.Label] = struct{}{}
		out = append(out, tx.Label)
	}
	slices.Sort(out)
	return out
}

// SetActiveLabels replaces the mask: a row is active iff its label is listed.
// Earlier drops are not remembered.
func (t *Transactions) SetActiveLabels(labels []string) {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	for i, tx := range t.all {
		_, ok := set[tx.Label]
		t.active[i] = ok
	}
	t.version++
	t.logger.Debug("Active labels replaced",
		log.FieldOperation, log.OpSetLabels,
		log.FieldLabel, strings.Join(labels, ","))
}

// SetActiveSublabels replaces the mask with the union over every label in
// the mapping of rows carrying that label and one of its sublabels. Labels
// missing from the mapping end up fully inactive.
func (t *Transactions) SetActiveSublabels(mapping map[string][]string) {
	for i, tx := range t.all {
		t.active[i] = slices.Contains(mapping[tx.Label], tx.Sublabel)
	}
	t.version++
	t.logger.Debug("Active sublabels replaced",
		log.FieldOperation, log.OpSetSublabels,
		"labels", len(mapping))
}

// ActiveCount is the number of active rows carrying the pair, in any window.
func (t *Transactions) ActiveCount(pair core.LabelPair) int {
	n := 0
	for i, tx := range t.all {
		if t.active[i] && pair.Matches(tx) {
			n++
		}
	}
	return n
}

// DropCosts deactivates every row carrying label and sublabel. It fails with
// a NotFoundError when no active row matches, leaving the mask untouched.
func (t *Transactions) DropCosts(label, sublabel string) error {
	pair := core.LabelPair{Label: label, Sublabel: sublabel}
	var hits []int
	for i, tx := range t.all {
		if t.active[i] && pair.Matches(tx) {
			hits = append(hits, i)
		}
	}
	if len(hits) == 0 {
		t.logger.Warn("Transaction not found in monthly costs",
			log.NewFields().
				WithOperation(log.OpDrop).
				WithLabel(label, sublabel).
				ToSlice()...)
		return &core.NotFoundError{Label: label, Sublabel: sublabel}
	}
	for _, i := range hits {
		t.active[i] = false
	}
	t.version++
	fields := log.NewFields().WithOperation(log.OpDrop).WithLabel(label, sublabel)
	fields[log.FieldRows] = len(hits)
	t.logger.Debug("Dropped costs", fields.ToSlice()...)
	return nil
}

// AddCosts materialises one forecast row per add directive in every window
// of the current range. A row is dated at the earliest active transaction of
// its window, or at the window start when the window is empty. The new rows
// are active. Returns the number of rows appended.
func (t *Transactions) AddCosts(adds []core.AddLabel) (int, error) {
	for _, a := range adds {
		if strings.TrimSpace(a.Label) == "" || strings.TrimSpace(a.Sublabel) == "" {
			return 0, &core.ConfigurationError{
				Field:  "add_labels",
				Reason: "label and sublabel are required",
			}
		}
	}
	if len(adds) == 0 {
		return 0, nil
	}

	var rows []core.LabeledTransaction
	for w, txs := range t.IterateMonths() {
		date := w.Start
		for i, tx := range txs {
			if i == 0 || tx.Date.Before(date) {
				date = tx.Date
			}
		}
		for _, a := range adds {
			rows = append(rows, core.LabeledTransaction{
				Transaction: core.Transaction{
					Date:   date,
					Text:   core.ForecastText,
					Amount: a.Amount,
				},
				Label:    a.Label,
				Sublabel: a.Sublabel,
			})
		}
	}

	minStart, maxEnd, err := extents(append(slices.Clone(t.all), rows...), t.splitDay)
	if err != nil {
		return 0, err
	}
	t.all = append(t.all, rows...)
	for range rows {
		t.active = append(t.active, true)
	}
	t.minStart, t.maxEnd = minStart, maxEnd
	t.version++
	t.logger.Debug("Added forecast costs",
		log.FieldOperation, log.OpAdd,
		log.FieldRows, len(rows))
	return len(rows), nil
}
