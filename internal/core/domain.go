package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ForecastText marks synthetic rows materialised from add directives.
const ForecastText = "Forecast"

const (
	MinMonthSplitDay = 1
	MaxMonthSplitDay = 27
)

type (
	Date struct {
		time.Time
	}

	// Transaction is one bank statement line as produced by the ingest step.
	Transaction struct {
		Date    Date
		Text    string
		Amount  float64 // signed: income > 0, expense < 0
		Account string
	}

	// LabeledTransaction is a Transaction after the labeling step.
	LabeledTransaction struct {
		Transaction
		Label    string
		Sublabel string
	}

	// LabelPair addresses one Label/Sublabel combination (drop directive).
	LabelPair struct {
		Label    string
		Sublabel string
	}

	// AddLabel is one recurring forecast entry (add directive).
	AddLabel struct {
		Label    string
		Sublabel string
		Amount   float64
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyText     = errors.New("empty text")
	ErrEmptyAccount  = errors.New("empty account")
	ErrEmptyLabel    = errors.New("empty label")
	ErrEmptySublabel = errors.New("empty sublabel")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock and location of t, keeping its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// Within reports whether start <= d <= end.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// MarshalText renders the date as YYYY-MM-DD for JSON and YAML.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoding so JSON carries the
// plain date.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Text)) == 0 {
		return ErrEmptyText
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	return nil
}

func (t LabeledTransaction) Validate() error {
	if err := t.Transaction.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Label) == "" {
		return ErrEmptyLabel
	}
	if strings.TrimSpace(t.Sublabel) == "" {
		return ErrEmptySublabel
	}
	return nil
}

// IsForecast reports whether the row was synthesised from an add directive.
func (t LabeledTransaction) IsForecast() bool {
	return t.Text == ForecastText && t.Account == ""
}

func (p LabelPair) Matches(t LabeledTransaction) bool {
	return t.Label == p.Label && t.Sublabel == p.Sublabel
}
