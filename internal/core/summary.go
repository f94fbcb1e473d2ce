package core

import "time"

// GroupAmount is an amount aggregated by label or sublabel name.
type GroupAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// PeriodAmount is one point of a time series. Date is the window start for
// monthly series and the raw transaction date for daily series.
type PeriodAmount struct {
	Date     Date    `json:"date"`
	Label    string  `json:"label,omitempty"`
	Sublabel string  `json:"sublabel,omitempty"`
	Amount   float64 `json:"amount"`
}

// Report is a compact summary of the current analysis range.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Start       Date           `json:"start"`
	End         Date           `json:"end"`
	Months      int            `json:"months"`
	Income      float64        `json:"income"`
	Expenses    float64        `json:"expenses"`
	Available   float64        `json:"available"`
	ByLabel     []GroupAmount  `json:"by_label"`
	Monthly     []PeriodAmount `json:"monthly"`
}
