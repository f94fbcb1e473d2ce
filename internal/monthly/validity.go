package monthly

import "myfinances/internal/core"

// bounds is the full state a range check looks at. Mutators build a candidate
// bounds value, run it through validate and only then commit it.
type bounds struct {
	splitDay int
	start    core.Date
	end      core.Date
	minStart core.Date
	maxEnd   core.Date
}

func (b bounds) equal(o bounds) bool {
	return b.splitDay == o.splitDay &&
		b.start.Equal(o.start) && b.end.Equal(o.end) &&
		b.minStart.Equal(o.minStart) && b.maxEnd.Equal(o.maxEnd)
}

// rangeChecker verifies one property of a candidate range. Each checker owns
// exactly one core.RangeCheck so a failure names what broke.
type rangeChecker struct {
	check core.RangeCheck
	ok    func(b bounds) bool
}

// rangeCheckers run in order; the first failure wins.
var rangeCheckers = []rangeChecker{
	{core.CheckStartOnSplitDay, func(b bounds) bool {
		return b.start.Day() == b.splitDay
	}},
	{core.CheckEndBeforeSplit, func(b bounds) bool {
		return core.NextDay(b.end).Day() == b.splitDay
	}},
	{core.CheckStartAfterMin, func(b bounds) bool {
		return !b.start.Before(b.minStart)
	}},
	{core.CheckEndBeforeMax, func(b bounds) bool {
		return !b.end.After(b.maxEnd)
	}},
	{core.CheckStartBeforeEnd, func(b bounds) bool {
		return !b.start.After(b.end)
	}},
}

func (b bounds) validate() error {
	for _, c := range rangeCheckers {
		if !c.ok(b) {
			return &core.DateRangeError{
				Check:    c.check,
				Start:    b.start,
				End:      b.end,
				MinStart: b.minStart,
				MaxEnd:   b.maxEnd,
				SplitDay: b.splitDay,
			}
		}
	}
	return nil
}

// extents computes the widest range every account fully covers: the latest
// first date snapped forward to a window start, and the earliest last date
// snapped back to a window end. Forecast rows have no account and are ignored.
func extents(txs []core.LabeledTransaction, splitDay int) (minStart, maxEnd core.Date, err error) {
	first := make(map[string]core.Date)
	last := make(map[string]core.Date)
	for _, t := range txs {
		if t.Account == "" {
			continue
		}
		if d, ok := first[t.Account]; !ok || t.Date.Before(d) {
			first[t.Account] = t.Date
		}
		if d, ok := last[t.Account]; !ok || t.Date.After(d) {
			last[t.Account] = t.Date
		}
	}
	if len(first) == 0 {
		return core.Date{}, core.Date{}, &core.ConfigurationError{
			Field:  "transactions",
			Reason: "no transaction with an account",
		}
	}

	var latestFirst, earliestLast core.Date
	for account, d := range first {
		if latestFirst.IsZero() || d.After(latestFirst) {
			latestFirst = d
		}
		if l := last[account]; earliestLast.IsZero() || l.Before(earliestLast) {
			earliestLast = l
		}
	}
	return core.WindowStartOnOrAfter(latestFirst, splitDay),
		core.WindowEndOnOrBefore(earliestLast, splitDay), nil
}
