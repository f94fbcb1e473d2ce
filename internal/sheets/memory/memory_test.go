package memory

import (
	"context"
	"testing"
	"time"

	"myfinances/internal/core"
	"myfinances/internal/sheets"
)

func sampleReport() core.Report {
	return core.Report{
		GeneratedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Start:       core.NewDate(2024, 2, 1),
		End:         core.NewDate(2024, 3, 31),
		Months:      2,
		Income:      3000,
		Expenses:    -1200.456,
		Available:   900,
		ByLabel:     []core.GroupAmount{{Name: "Home", Amount: -500}, {Name: "Income", Amount: 1500}},
		Monthly: []core.PeriodAmount{
			{Date: core.NewDate(2024, 2, 1), Amount: -700},
			{Date: core.NewDate(2024, 3, 1), Amount: -500.456},
		},
	}
}

func TestStoreWriteReport(t *testing.T) {
	s := New()
	if _, _, ok := s.Last(); ok {
		t.Fatal("empty store should have no last report")
	}

	ref, err := s.WriteReport(context.Background(), sampleReport())
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	ref, _ = s.WriteReport(context.Background(), core.Report{Months: 1})
	if ref != "mem:2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	if n := len(s.Reports()); n != 2 {
		t.Fatalf("expected 2 reports, got %d", n)
	}
	last, grid, ok := s.Last()
	if !ok || last.Months != 1 || len(grid) == 0 {
		t.Fatalf("unexpected last report %+v", last)
	}
}

func TestStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().WriteReport(ctx, sampleReport()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestReportRows(t *testing.T) {
	rows := sheets.ReportRows(sampleReport())

	want := [][]any{
		{sheets.HeaderSummary, "2024-05-01T08:00:00Z"},
		{"Start", "2024-02-01"},
		{"End", "2024-03-31"},
		{"Months", 2},
		{"Income", 3000.0},
		{"Expenses", -1200.46},
		{"Available", 900.0},
		{},
		{sheets.HeaderByLabel, "Amount"},
		{"Home", -500.0},
		{"Income", 1500.0},
		{},
		{sheets.HeaderMonthly, "Amount"},
		{"2024-02-01", -700.0},
		{"2024-03-01", -500.46},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %v", len(rows), len(want), rows)
	}
	for i := range want {
		if len(rows[i]) != len(want[i]) {
			t.Fatalf("row %d: got %v want %v", i, rows[i], want[i])
		}
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("cell %d,%d: got %#v want %#v", i, j, rows[i][j], want[i][j])
			}
		}
	}
}
