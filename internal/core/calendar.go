package core

import "time"

// NextDay returns the following calendar day.
func NextDay(d Date) Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

// PreviousDay returns the preceding calendar day.
func PreviousDay(d Date) Date {
	return Date{Time: d.AddDate(0, 0, -1)}
}

// NextMonth moves one calendar month forward. The day of month is clamped to
// the last day of the target month (Jan 31 -> Feb 28/29).
func NextMonth(d Date) Date {
	return AddMonths(d, 1)
}

// PreviousMonth moves one calendar month back, clamping like NextMonth.
func PreviousMonth(d Date) Date {
	return AddMonths(d, -1)
}

// AddMonths moves n calendar months, clamping the day of month.
func AddMonths(d Date, n int) Date {
	// First of the target month; time.Date normalises month overflow.
	first := time.Date(d.Year(), time.Month(d.Month()+n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysIn(first.Year(), int(first.Month())); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WindowStartOnOrAfter returns the first date with the given split day that is
// not before d.
func WindowStartOnOrAfter(d Date, splitDay int) Date {
	if d.Day() > splitDay {
		next := NextMonth(NewDate(d.Year(), d.Month(), 1))
		return NewDate(next.Year(), next.Month(), splitDay)
	}
	return NewDate(d.Year(), d.Month(), splitDay)
}

// WindowEndOnOrBefore returns the latest date not after d whose next day falls
// on the split day. With split day 1 this is the last day of a month.
func WindowEndOnOrBefore(d Date, splitDay int) Date {
	anchor := NextDay(d)
	if anchor.Day() < splitDay {
		anchor = PreviousMonth(NewDate(anchor.Year(), anchor.Month(), 1))
	}
	return PreviousDay(NewDate(anchor.Year(), anchor.Month(), splitDay))
}
