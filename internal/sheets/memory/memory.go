// Package memory keeps exported reports in process. It backs
// REPORT_BACKEND=memory and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"myfinances/internal/core"
	"myfinances/internal/sheets"
)

var _ sheets.ReportWriter = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	reports []core.Report
	grids   [][][]any
}

func New() *Store {
	return &Store{}
}

// WriteReport stores the report and returns a synthetic reference.
func (s *Store) WriteReport(ctx context.Context, r core.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	s.grids = append(s.grids, sheets.ReportRows(r))
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Reports returns every stored report, oldest first.
func (s *Store) Reports() []core.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Report(nil), s.reports...)
}

// Last returns the newest report and its grid.
func (s *Store) Last() (core.Report, [][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return core.Report{}, nil, false
	}
	n := len(s.reports) - 1
	return s.reports[n], s.grids[n], true
}
