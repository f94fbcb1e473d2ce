package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Fatalf("expected error for invalid calendar date")
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{NewDate(2024, 3, 5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2024-03-05"}` {
		t.Fatalf("got %s", b)
	}
	var out struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.D.Equal(NewDate(2024, 3, 5)) {
		t.Fatalf("got %s", out.D)
	}
}

func TestDateWithin(t *testing.T) {
	start, end := NewDate(2024, 1, 15), NewDate(2024, 2, 14)
	cases := []struct {
		d  Date
		in bool
	}{
		{NewDate(2024, 1, 14), false},
		{start, true},
		{NewDate(2024, 1, 31), true},
		{end, true},
		{NewDate(2024, 2, 15), false},
	}
	for _, tc := range cases {
		if got := tc.d.Within(start, end); got != tc.in {
			t.Fatalf("%s within: expected %v got %v", tc.d, tc.in, got)
		}
	}
}

func TestLabeledTransactionValidate(t *testing.T) {
	good := LabeledTransaction{
		Transaction: Transaction{Date: NewDate(2025, 1, 1), Text: "ok", Amount: -10, Account: "Bank"},
		Label:       "Food",
		Sublabel:    "Groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		mut  func(*LabeledTransaction)
		want error
	}{
		{func(t *LabeledTransaction) { t.Text = " " }, ErrEmptyText},
		{func(t *LabeledTransaction) { t.Account = "" }, ErrEmptyAccount},
		{func(t *LabeledTransaction) { t.Label = "" }, ErrEmptyLabel},
		{func(t *LabeledTransaction) { t.Sublabel = "" }, ErrEmptySublabel},
	}
	for i, tc := range cases {
		bad := good
		tc.mut(&bad)
		if err := bad.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestIsForecast(t *testing.T) {
	f := LabeledTransaction{Transaction: Transaction{Text: ForecastText}}
	if !f.IsForecast() {
		t.Fatalf("expected forecast row")
	}
	f.Account = "Bank"
	if f.IsForecast() {
		t.Fatalf("row with account is not a forecast")
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{&ConfigurationError{Field: "x", Reason: "y"}, ErrConfiguration},
		{&MonthSplitDayError{Day: 28}, ErrConfiguration},
		{&DateRangeError{Check: CheckStartBeforeEnd}, ErrDateRange},
		{&NotFoundError{Label: "Food", Sublabel: "Groceries"}, ErrNotFound},
		{&LabelIntegrityError{Kind: LabelMissing, Texts: []string{"a"}}, ErrLabelIntegrity},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%T should unwrap to %v", tc.err, tc.kind)
		}
		if tc.err.Error() == "" {
			t.Fatalf("%T has empty message", tc.err)
		}
	}

	var rangeErr *DateRangeError
	wrapped := errors.Join(errors.New("ctx"), &DateRangeError{Check: CheckEndBeforeMax})
	if !errors.As(wrapped, &rangeErr) || rangeErr.Check != CheckEndBeforeMax {
		t.Fatalf("expected to recover the failing check")
	}
}

func TestValidateMonthSplitDay(t *testing.T) {
	for _, d := range []int{1, 2, 15, 27} {
		if err := ValidateMonthSplitDay(d); err != nil {
			t.Fatalf("day %d: unexpected error %v", d, err)
		}
	}
	for _, d := range []int{-1, 0, 28, 31} {
		var target *MonthSplitDayError
		if err := ValidateMonthSplitDay(d); !errors.As(err, &target) || target.Day != d {
			t.Fatalf("day %d: expected MonthSplitDayError, got %v", d, err)
		}
	}
}

func TestParseMonthSplitDay(t *testing.T) {
	if d, err := ParseMonthSplitDay(" 15 "); err != nil || d != 15 {
		t.Fatalf("expected 15, got %d (err=%v)", d, err)
	}
	var cfgErr *ConfigurationError
	if _, err := ParseMonthSplitDay("1.5"); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	var splitErr *MonthSplitDayError
	if _, err := ParseMonthSplitDay("28"); !errors.As(err, &splitErr) {
		t.Fatalf("expected MonthSplitDayError, got %v", err)
	}
}
