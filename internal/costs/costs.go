// Package costs aggregates the current view of a monthly window engine into
// totals, per label breakdowns and time series.
//
// Nothing is cached: every method reads the engine's view afresh, so results
// always reflect the latest range and mask.
package costs

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"myfinances/internal/core"
	"myfinances/internal/log"
	"myfinances/internal/monthly"
)

// GroupKey names an extra grouping column for monthly series.
type GroupKey string

const (
	ByLabel    GroupKey = "label"
	BySublabel GroupKey = "sublabel"
)

// MonthlyCosts reads through a monthly.Transactions engine. It never mutates
// the engine except through the drop/add entry points.
type MonthlyCosts struct {
	engine *monthly.Transactions
	logger *log.Logger
	now    func() time.Time
}

// New wraps an engine.
func New(engine *monthly.Transactions, logger *log.Logger) *MonthlyCosts {
	if logger == nil {
		logger = log.Default(log.ComponentCosts)
	} else {
		logger = logger.WithComponent(log.ComponentCosts)
	}
	return &MonthlyCosts{engine: engine, logger: logger, now: time.Now}
}

// Engine exposes the wrapped engine for range and mask mutations.
func (c *MonthlyCosts) Engine() *monthly.Transactions { return c.engine }

// Expenses sums every negative amount in the view.
func (c *MonthlyCosts) Expenses() float64 {
	var sum float64
	for _, tx := range c.engine.Transactions() {
		if tx.Amount < 0 {
			sum += tx.Amount
		}
	}
	return sum
}

// Income sums every positive amount in the view.
func (c *MonthlyCosts) Income() float64 {
	var sum float64
	for _, tx := range c.engine.Transactions() {
		if tx.Amount > 0 {
			sum += tx.Amount
		}
	}
	return sum
}

// AveragedExpensesByLabel sums the view per label and divides by the number of
// windows. Sorted ascending, so the biggest expense comes first.
func (c *MonthlyCosts) AveragedExpensesByLabel() []core.GroupAmount {
	return c.averaged(c.engine.Transactions(), func(tx core.LabeledTransaction) string { return tx.Label })
}

// AveragedExpensesBySublabel is AveragedExpensesByLabel restricted to one
// label and grouped by sublabel.
func (c *MonthlyCosts) AveragedExpensesBySublabel(label string) []core.GroupAmount {
	txs := slices.DeleteFunc(c.engine.Transactions(), func(tx core.LabeledTransaction) bool {
		return tx.Label != label
	})
	return c.averaged(txs, func(tx core.LabeledTransaction) string { return tx.Sublabel })
}

// AveragedIncome averages the positive rows per sublabel.
func (c *MonthlyCosts) AveragedIncome() []core.GroupAmount {
	txs := slices.DeleteFunc(c.engine.Transactions(), func(tx core.LabeledTransaction) bool {
		return tx.Amount <= 0
	})
	return c.averaged(txs, func(tx core.LabeledTransaction) string { return tx.Sublabel })
}

// Available is the averaged monthly balance of the view.
func (c *MonthlyCosts) Available() float64 {
	var sum float64
	for _, g := range c.AveragedExpensesByLabel() {
		sum += g.Amount
	}
	return sum
}

func (c *MonthlyCosts) averaged(txs []core.LabeledTransaction, key func(core.LabeledTransaction) string) []core.GroupAmount {
	months := float64(c.engine.NumMonths())
	sums := make(map[string]float64)
	for _, tx := range txs {
		sums[key(tx)] += tx.Amount
	}
	out := make([]core.GroupAmount, 0, len(sums))
	for name, sum := range sums {
		out = append(out, core.GroupAmount{Name: name, Amount: sum / months})
	}
	slices.SortFunc(out, func(a, b core.GroupAmount) int {
		if n := cmp.Compare(a.Amount, b.Amount); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// MonthlyExpenses sums each window's rows under the window start date. With
// no extra keys every window yields exactly one point, zero when empty. With
// keys, each window yields one point per distinct key combination present.
func (c *MonthlyCosts) MonthlyExpenses(keys ...GroupKey) []core.PeriodAmount {
	out := make([]core.PeriodAmount, 0)
	for w, txs := range c.engine.IterateMonths() {
		if len(keys) == 0 {
			var sum float64
			for _, tx := range txs {
				sum += tx.Amount
			}
			out = append(out, core.PeriodAmount{Date: w.Start, Amount: sum})
			continue
		}

		type group struct{ label, sublabel string }
		sums := make(map[group]float64)
		for _, tx := range txs {
			var g group
			for _, k := range keys {
				switch k {
				case ByLabel:
					g.label = tx.Label
				case BySublabel:
					g.sublabel = tx.Sublabel
				}
			}
			sums[g] += tx.Amount
		}
		points := make([]core.PeriodAmount, 0, len(sums))
		for g, sum := range sums {
			points = append(points, core.PeriodAmount{
				Date:     w.Start,
				Label:    g.label,
				Sublabel: g.sublabel,
				Amount:   sum,
			})
		}
		slices.SortFunc(points, func(a, b core.PeriodAmount) int {
			return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.Sublabel, b.Sublabel))
		})
		out = append(out, points...)
	}
	return out
}

// MonthlyExpensesByLabel is the monthly series of one label.
func (c *MonthlyCosts) MonthlyExpensesByLabel(label string) []core.PeriodAmount {
	return slices.DeleteFunc(c.MonthlyExpenses(ByLabel), func(p core.PeriodAmount) bool {
		return p.Label != label
	})
}

// MonthlyExpensesBySublabel is the monthly series of one label/sublabel pair.
func (c *MonthlyCosts) MonthlyExpensesBySublabel(label, sublabel string) []core.PeriodAmount {
	return slices.DeleteFunc(c.MonthlyExpenses(ByLabel, BySublabel), func(p core.PeriodAmount) bool {
		return p.Label != label || p.Sublabel != sublabel
	})
}

// DailyExpenses sums the view per raw transaction date, oldest first.
func (c *MonthlyCosts) DailyExpenses() []core.PeriodAmount {
	index := make(map[string]int)
	out := make([]core.PeriodAmount, 0)
	for _, tx := range c.engine.Transactions() {
		key := tx.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.PeriodAmount{Date: tx.Date})
		}
		out[i].Amount += tx.Amount
	}
	slices.SortFunc(out, func(a, b core.PeriodAmount) int {
		return a.Date.Compare(b.Date.Time)
	})
	return out
}

// DropCostsByConfig applies every drop directive. All pairs are checked
// before any is applied, so a missing pair leaves the mask untouched.
func (c *MonthlyCosts) DropCostsByConfig(pairs []core.LabelPair) error {
	seen := make(map[core.LabelPair]bool, len(pairs))
	for _, p := range pairs {
		if seen[p] || c.engine.ActiveCount(p) == 0 {
			c.logger.Error("Transaction not found in monthly costs",
				log.FieldLabel, p.Label, log.FieldSublabel, p.Sublabel)
			return &core.NotFoundError{Label: p.Label, Sublabel: p.Sublabel}
		}
		seen[p] = true
	}
	for _, p := range pairs {
		if err := c.engine.DropCosts(p.Label, p.Sublabel); err != nil {
			return fmt.Errorf("drop %s/%s: %w", p.Label, p.Sublabel, err)
		}
	}
	c.logger.Info("Dropped costs by config", "pairs", len(pairs))
	return nil
}

// AddCostsByConfig materialises the add directives as forecast rows in every
// window of the current range.
func (c *MonthlyCosts) AddCostsByConfig(adds []core.AddLabel) error {
	n, err := c.engine.AddCosts(adds)
	if err != nil {
		return fmt.Errorf("add costs: %w", err)
	}
	c.logger.Info("Added forecast costs", log.FieldRows, n)
	return nil
}

// Report summarises the current view.
func (c *MonthlyCosts) Report() core.Report {
	byLabel := c.AveragedExpensesByLabel()
	var available float64
	for _, g := range byLabel {
		available += g.Amount
	}
	c.logger.Debug("Report built", log.FieldMonths, c.engine.NumMonths())
	return core.Report{
		GeneratedAt: c.now().UTC(),
		Start:       c.engine.Start(),
		End:         c.engine.End(),
		Months:      c.engine.NumMonths(),
		Income:      c.Income(),
		Expenses:    c.Expenses(),
		Available:   available,
		ByLabel:     byLabel,
		Monthly:     c.MonthlyExpenses(),
	}
}
