package core

import "testing"

func TestDayStepping(t *testing.T) {
	cases := []struct {
		in, next, prev Date
	}{
		{NewDate(2024, 2, 28), NewDate(2024, 2, 29), NewDate(2024, 2, 27)},
		{NewDate(2024, 2, 29), NewDate(2024, 3, 1), NewDate(2024, 2, 28)},
		{NewDate(2023, 2, 28), NewDate(2023, 3, 1), NewDate(2023, 2, 27)},
		{NewDate(2023, 12, 31), NewDate(2024, 1, 1), NewDate(2023, 12, 30)},
		{NewDate(2024, 1, 1), NewDate(2024, 1, 2), NewDate(2023, 12, 31)},
	}
	for _, tc := range cases {
		if got := NextDay(tc.in); !got.Equal(tc.next) {
			t.Fatalf("NextDay(%s) = %s, want %s", tc.in, got, tc.next)
		}
		if got := PreviousDay(tc.in); !got.Equal(tc.prev) {
			t.Fatalf("PreviousDay(%s) = %s, want %s", tc.in, got, tc.prev)
		}
	}
}

func TestMonthStepping(t *testing.T) {
	cases := []struct {
		in, next, prev Date
	}{
		{NewDate(2024, 1, 31), NewDate(2024, 2, 29), NewDate(2023, 12, 31)},
		{NewDate(2023, 1, 31), NewDate(2023, 2, 28), NewDate(2022, 12, 31)},
		{NewDate(2024, 3, 31), NewDate(2024, 4, 30), NewDate(2024, 2, 29)},
		{NewDate(2024, 12, 15), NewDate(2025, 1, 15), NewDate(2024, 11, 15)},
		{NewDate(2024, 2, 1), NewDate(2024, 3, 1), NewDate(2024, 1, 1)},
	}
	for _, tc := range cases {
		if got := NextMonth(tc.in); !got.Equal(tc.next) {
			t.Fatalf("NextMonth(%s) = %s, want %s", tc.in, got, tc.next)
		}
		if got := PreviousMonth(tc.in); !got.Equal(tc.prev) {
			t.Fatalf("PreviousMonth(%s) = %s, want %s", tc.in, got, tc.prev)
		}
	}
}

func TestLeapYearWindowWrap(t *testing.T) {
	// Split day 1: the window starting Feb 1 ends on Feb 29 in a leap year.
	end := PreviousDay(NextMonth(NewDate(2024, 2, 1)))
	if !end.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("got %s", end)
	}
	if next := NextDay(end); next.Day() != 1 || next.Month() != 3 {
		t.Fatalf("expected Mar 1, got %s", next)
	}
	end = PreviousDay(NextMonth(NewDate(2023, 2, 1)))
	if !end.Equal(NewDate(2023, 2, 28)) {
		t.Fatalf("got %s", end)
	}
}

func TestWindowStartOnOrAfter(t *testing.T) {
	cases := []struct {
		d     Date
		split int
		want  Date
	}{
		{NewDate(2022, 1, 30), 1, NewDate(2022, 2, 1)},
		{NewDate(2022, 1, 30), 2, NewDate(2022, 2, 2)},
		{NewDate(2022, 1, 30), 15, NewDate(2022, 2, 15)},
		{NewDate(2022, 1, 30), 27, NewDate(2022, 2, 27)},
		{NewDate(2024, 1, 1), 1, NewDate(2024, 1, 1)},
		{NewDate(2024, 1, 5), 15, NewDate(2024, 1, 15)},
		{NewDate(2024, 1, 5), 27, NewDate(2024, 1, 27)},
		{NewDate(2024, 1, 5), 2, NewDate(2024, 2, 2)},
		{NewDate(2024, 12, 20), 15, NewDate(2025, 1, 15)},
	}
	for _, tc := range cases {
		if got := WindowStartOnOrAfter(tc.d, tc.split); !got.Equal(tc.want) {
			t.Fatalf("WindowStartOnOrAfter(%s, %d) = %s, want %s", tc.d, tc.split, got, tc.want)
		}
	}
}

func TestWindowEndOnOrBefore(t *testing.T) {
	cases := []struct {
		d     Date
		split int
		want  Date
	}{
		{NewDate(2024, 4, 30), 1, NewDate(2024, 4, 30)},
		{NewDate(2024, 4, 30), 2, NewDate(2024, 4, 1)},
		{NewDate(2024, 4, 30), 15, NewDate(2024, 4, 14)},
		{NewDate(2024, 4, 30), 27, NewDate(2024, 4, 26)},
		{NewDate(2024, 4, 3), 1, NewDate(2024, 3, 31)},
		{NewDate(2024, 4, 3), 2, NewDate(2024, 4, 1)},
		{NewDate(2024, 4, 3), 15, NewDate(2024, 3, 14)},
		{NewDate(2024, 4, 3), 27, NewDate(2024, 3, 26)},
		{NewDate(2024, 4, 14), 15, NewDate(2024, 4, 14)},
		{NewDate(2024, 1, 10), 15, NewDate(2023, 12, 14)},
		{NewDate(2024, 2, 29), 1, NewDate(2024, 2, 29)},
	}
	for _, tc := range cases {
		got := WindowEndOnOrBefore(tc.d, tc.split)
		if !got.Equal(tc.want) {
			t.Fatalf("WindowEndOnOrBefore(%s, %d) = %s, want %s", tc.d, tc.split, got, tc.want)
		}
		if NextDay(got).Day() != tc.split {
			t.Fatalf("end %s is not the day before split %d", got, tc.split)
		}
	}
}
