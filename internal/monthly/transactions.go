// Package monthly buckets labeled transactions into financial months whose
// boundaries fall on a configurable split day instead of the first of the
// calendar month.
//
// Transactions owns the full row set plus an activity mask. Rows are never
// removed: drops and label selections only flip mask bits, and forecasts are
// appended. Every range or split-day mutation is validated before it is
// committed, so a failed call leaves the engine exactly as it was.
package monthly

import (
	"iter"
	"slices"

	"myfinances/internal/core"
	"myfinances/internal/log"
)

// Window is one financial month, both ends inclusive.
type Window struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	return d.Within(w.Start, w.End)
}

// Transactions is the monthly window engine. It is not safe for concurrent
// use; callers that share one across goroutines must serialise access.
type Transactions struct {
	all    []core.LabeledTransaction
	active []bool
	bounds

	version uint64
	logger  *log.Logger
}

// Option configures a Transactions engine.
type Option func(*Transactions)

// WithLogger injects the logger used for range and mutation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(t *Transactions) {
		if l != nil {
			t.logger = l.WithComponent(log.ComponentEngine)
		}
	}
}

// New builds the engine from a fully labeled data set. The initial range is
// the full extent the data supports for splitDay.
func New(txs []core.LabeledTransaction, splitDay int, opts ...Option) (*Transactions, error) {
	if err := core.ValidateMonthSplitDay(splitDay); err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, &core.ConfigurationError{Field: "transactions", Reason: "empty data set"}
	}

	t := &Transactions{
		all:    slices.Clone(txs),
		active: make([]bool, len(txs)),
	}
	for i := range t.active {
		t.active[i] = true
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Default(log.ComponentEngine)
	}

	minStart, maxEnd, err := extents(t.all, splitDay)
	if err != nil {
		return nil, err
	}
	b := bounds{splitDay: splitDay, start: minStart, end: maxEnd, minStart: minStart, maxEnd: maxEnd}
	if err := b.validate(); err != nil {
		return nil, err
	}
	t.bounds = b

	t.logger.Info("Analyzing transactions",
		log.NewFields().
			WithRange(t.start.String(), t.end.String(), t.NumMonths()).
			ToSlice()...)
	return t, nil
}

// Start is the first day of the analysed range.
func (t *Transactions) Start() core.Date { return t.start }

// End is the last day of the analysed range.
func (t *Transactions) End() core.Date { return t.end }

// MinStart is the earliest start every account has data for.
func (t *Transactions) MinStart() core.Date { return t.minStart }

// MaxEnd is the latest end every account has data for.
func (t *Transactions) MaxEnd() core.Date { return t.maxEnd }

// MonthSplitDay is the day of month each window starts on.
func (t *Transactions) MonthSplitDay() int { return t.splitDay }

// Version increases on every mutation that changed the view.
func (t *Transactions) Version() uint64 { return t.version }

// Len is the number of stored rows, active or not.
func (t *Transactions) Len() int { return len(t.all) }

// Transactions returns the active rows inside the selected range. The result
// is a fresh copy.
func (t *Transactions) Transactions() []core.LabeledTransaction {
	return t.filter(t.start, t.end)
}

// All returns a copy of every stored row regardless of mask or range.
func (t *Transactions) All() []core.LabeledTransaction {
	return slices.Clone(t.all)
}

func (t *Transactions) filter(from, to core.Date) []core.LabeledTransaction {
	out := make([]core.LabeledTransaction, 0)
	for i, tx := range t.all {
		if t.active[i] && tx.Date.Within(from, to) {
			out = append(out, tx)
		}
	}
	return out
}

// SetStart moves the start of the range. Setting the current start is a no-op.
func (t *Transactions) SetStart(d core.Date) error {
	b := t.bounds
	b.start = d
	return t.commit(b, log.OpSetRange)
}

// SetEnd moves the end of the range.
func (t *Transactions) SetEnd(d core.Date) error {
	b := t.bounds
	b.end = d
	return t.commit(b, log.OpSetRange)
}

// SetRange moves both ends at once, so an intermediate state that would fail
// validation on its own is never observed.
func (t *Transactions) SetRange(start, end core.Date) error {
	b := t.bounds
	b.start, b.end = start, end
	return t.commit(b, log.OpSetRange)
}

// SetMonthSplitDay changes the split day, recomputes the extents and resets
// the range to the new full extent.
func (t *Transactions) SetMonthSplitDay(day int) error {
	if err := core.ValidateMonthSplitDay(day); err != nil {
		t.logger.Warn("Rejected month split day", log.FieldSplitDay, day, log.FieldError, err)
		return err
	}
	minStart, maxEnd, err := extents(t.all, day)
	if err != nil {
		return err
	}
	return t.commit(bounds{
		splitDay: day,
		start:    minStart,
		end:      maxEnd,
		minStart: minStart,
		maxEnd:   maxEnd,
	}, log.OpSetSplitDay)
}

// commit validates the candidate and swaps it in. On failure the current
// bounds are left untouched.
func (t *Transactions) commit(b bounds, op string) error {
	if err := b.validate(); err != nil {
		t.logger.Warn("Rejected range change",
			log.FieldOperation, op,
			log.FieldStart, b.start.String(),
			log.FieldEnd, b.end.String(),
			log.FieldSplitDay, b.splitDay,
			log.FieldError, err)
		return err
	}
	if b.equal(t.bounds) {
		return nil
	}
	t.bounds = b
	t.version++
	t.logger.Debug("Range updated",
		log.NewFields().
			WithOperation(op).
			WithRange(t.start.String(), t.end.String(), t.NumMonths()).
			ToSlice()...)
	return nil
}

// Months returns the windows between start and end, stepping one calendar
// month from the start. Only windows that end on or before the range end are
// included.
func (t *Transactions) Months() []Window {
	return windowsBetween(t.start, t.end)
}

func windowsBetween(start, end core.Date) []Window {
	var out []Window
	for k := 0; ; k++ {
		w := Window{
			Start: core.AddMonths(start, k),
			End:   core.PreviousDay(core.AddMonths(start, k+1)),
		}
		if w.End.After(end) {
			return out
		}
		out = append(out, w)
	}
}

// MonthsStart lists the start date of every window.
func (t *Transactions) MonthsStart() []core.Date {
	ws := t.Months()
	out := make([]core.Date, len(ws))
	for i, w := range ws {
		out[i] = w.Start
	}
	return out
}

// MonthsEnd lists the end date of every window.
func (t *Transactions) MonthsEnd() []core.Date {
	ws := t.Months()
	out := make([]core.Date, len(ws))
	for i, w := range ws {
		out[i] = w.End
	}
	return out
}

// NumMonths is the number of windows in the selected range.
func (t *Transactions) NumMonths() int {
	return len(t.Months())
}

// IterateMonths yields each window with its active rows. The sequence is
// computed on every range call, so it reflects the state at iteration time
// and can be consumed any number of times.
func (t *Transactions) IterateMonths() iter.Seq2[Window, []core.LabeledTransaction] {
	return func(yield func(Window, []core.LabeledTransaction) bool) {
		for _, w := range t.Months() {
			if !yield(w, t.filter(w.Start, w.End)) {
				return
			}
		}
	}
}

// SelectableStarts lists every window start inside the full extent.
func (t *Transactions) SelectableStarts() []core.Date {
	ws := windowsBetween(t.minStart, t.maxEnd)
	out := make([]core.Date, len(ws))
	for i, w := range ws {
		out[i] = w.Start
	}
	return out
}

// SelectableEnds lists every window end inside the full extent.
func (t *Transactions) SelectableEnds() []core.Date {
	ws := windowsBetween(t.minStart, t.maxEnd)
	out := make([]core.Date, len(ws))
	for i, w := range ws {
		out[i] = w.End
	}
	return out
}
