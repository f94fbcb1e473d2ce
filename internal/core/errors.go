package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error kinds. Every typed error below unwraps to one of these so callers can
// branch with errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrDateRange      = errors.New("date range error")
	ErrNotFound       = errors.New("not found")
	ErrLabelIntegrity = errors.New("label integrity error")
)

// ConfigurationError reports a malformed or out-of-bounds setup parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// MonthSplitDayError is returned when a split day falls outside [1,27].
type MonthSplitDayError struct {
	Day int
}

func (e *MonthSplitDayError) Error() string {
	return fmt.Sprintf("invalid month split day %d: must be between %d and %d",
		e.Day, MinMonthSplitDay, MaxMonthSplitDay)
}

func (e *MonthSplitDayError) Unwrap() error { return ErrConfiguration }

// ValidateMonthSplitDay gates a split day before any range is recomputed.
func ValidateMonthSplitDay(day int) error {
	if day < MinMonthSplitDay || day > MaxMonthSplitDay {
		return &MonthSplitDayError{Day: day}
	}
	return nil
}

// RangeCheck names one of the range validity checks.
type RangeCheck string

const (
	CheckStartOnSplitDay RangeCheck = "start_on_split_day"
	CheckEndBeforeSplit  RangeCheck = "end_before_split_day"
	CheckStartAfterMin   RangeCheck = "start_not_before_min"
	CheckEndBeforeMax    RangeCheck = "end_not_after_max"
	CheckStartBeforeEnd  RangeCheck = "start_not_after_end"
)

// DateRangeError reports which range check a requested start/end violated.
type DateRangeError struct {
	Check    RangeCheck
	Start    Date
	End      Date
	MinStart Date
	MaxEnd   Date
	SplitDay int
}

func (e *DateRangeError) Error() string {
	switch e.Check {
	case CheckStartOnSplitDay:
		return fmt.Sprintf("date range error: start %s is not on split day %d", e.Start, e.SplitDay)
	case CheckEndBeforeSplit:
		return fmt.Sprintf("date range error: end %s is not the day before split day %d", e.End, e.SplitDay)
	case CheckStartAfterMin:
		return fmt.Sprintf("date range error: start %s is before first full window %s", e.Start, e.MinStart)
	case CheckEndBeforeMax:
		return fmt.Sprintf("date range error: end %s is after last full window %s", e.End, e.MaxEnd)
	case CheckStartBeforeEnd:
		return fmt.Sprintf("date range error: start %s is after end %s", e.Start, e.End)
	}
	return fmt.Sprintf("date range error: %s", e.Check)
}

func (e *DateRangeError) Unwrap() error { return ErrDateRange }

// NotFoundError reports a drop directive without matching active rows.
type NotFoundError struct {
	Label    string
	Sublabel string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: label %q, sublabel %q", e.Label, e.Sublabel)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// LabelIntegrityKind distinguishes the two labeling failures.
type LabelIntegrityKind string

const (
	LabelDuplicate LabelIntegrityKind = "duplicate"
	LabelMissing   LabelIntegrityKind = "unlabeled"
)

// LabelIntegrityError is raised while labeling, before any engine exists.
type LabelIntegrityError struct {
	Kind     LabelIntegrityKind
	Label    string
	Sublabel string
	Texts    []string
}

func (e *LabelIntegrityError) Error() string {
	if e.Kind == LabelDuplicate {
		return fmt.Sprintf("duplicated labels: %s/%s matches already labeled transactions: %s",
			e.Label, e.Sublabel, strings.Join(e.Texts, ", "))
	}
	return fmt.Sprintf("found %d unlabeled transactions: %s", len(e.Texts), strings.Join(e.Texts, ", "))
}

func (e *LabelIntegrityError) Unwrap() error { return ErrLabelIntegrity }

// ParseMonthSplitDay parses a split day from text, e.g. an environment
// variable or a YAML scalar. Non-integers are configuration errors.
func ParseMonthSplitDay(s string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ConfigurationError{Field: "month_split_day", Reason: fmt.Sprintf("%q is not an integer", s)}
	}
	if err := ValidateMonthSplitDay(day); err != nil {
		return 0, err
	}
	return day, nil
}
