package http

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"myfinances/internal/core"
	"myfinances/internal/costs"
	"myfinances/internal/log"
)

// RangeView describes the analysed range and the choices a range picker
// may offer.
type RangeView struct {
	Version          uint64      `json:"version"`
	Start            core.Date   `json:"start"`
	End              core.Date   `json:"end"`
	MinStart         core.Date   `json:"min_start"`
	MaxEnd           core.Date   `json:"max_end"`
	MonthSplitDay    int         `json:"month_split_day"`
	Months           int         `json:"months"`
	SelectableStarts []core.Date `json:"selectable_starts"`
	SelectableEnds   []core.Date `json:"selectable_ends"`
}

type TransactionView struct {
	Date     core.Date `json:"date"`
	Text     string    `json:"text"`
	Amount   float64   `json:"amount"`
	Account  string    `json:"account"`
	Label    string    `json:"label"`
	Sublabel string    `json:"sublabel"`
	Forecast bool      `json:"forecast,omitempty"`
}

type SummaryView struct {
	Version uint64 `json:"version"`
	core.Report
}

type LabelsView struct {
	Version   uint64              `json:"version"`
	All       []string            `json:"all"`
	Active    []string            `json:"active"`
	Sublabels map[string][]string `json:"sublabels"`
	Averaged  []core.GroupAmount  `json:"averaged"`
}

type SeriesView struct {
	Version uint64              `json:"version"`
	Points  []core.PeriodAmount `json:"points"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	engine := s.costs.Engine()
	data := struct {
		Start, End string
		SplitDay   int
		Labels     []string
	}{
		Start:    engine.Start().String(),
		End:      engine.End().String(),
		SplitDay: engine.MonthSplitDay(),
		Labels:   engine.AllLabels(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender)
	}
}

func (s *Server) rangeView() RangeView {
	e := s.costs.Engine()
	return RangeView{
		Version:          e.Version(),
		Start:            e.Start(),
		End:              e.End(),
		MinStart:         e.MinStart(),
		MaxEnd:           e.MaxEnd(),
		MonthSplitDay:    e.MonthSplitDay(),
		Months:           e.NumMonths(),
		SelectableStarts: e.SelectableStarts(),
		SelectableEnds:   e.SelectableEnds(),
	}
}

func (s *Server) handleGetRange(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.rangeView()).Write(w, r)
}

// handleSetRange moves one or both bounds. A rejected range leaves the view
// as it was.
func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	var req RangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w, r)
		return
	}
	engine := s.costs.Engine()

	var err error
	switch {
	case req.Start != nil && req.End != nil:
		err = engine.SetRange(*req.Start, *req.End)
	case req.Start != nil:
		err = engine.SetStart(*req.Start)
	case req.End != nil:
		err = engine.SetEnd(*req.End)
	default:
		BadRequest("start or end is required").Write(w, r)
		return
	}
	if err != nil {
		s.reject(w, r, log.OpSetRange, err)
		return
	}
	s.events.LogMutation(r.Context(), log.OpSetRange, engine.Version(), log.NewFields().
		WithRange(engine.Start().String(), engine.End().String(), engine.NumMonths()))
	NewJSONResponse().Body(s.rangeView()).Write(w, r)
}

func (s *Server) handleSetSplitDay(w http.ResponseWriter, r *http.Request) {
	var req SplitDayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w, r)
		return
	}
	engine := s.costs.Engine()
	if err := engine.SetMonthSplitDay(req.Day); err != nil {
		s.reject(w, r, log.OpSetSplitDay, err)
		return
	}
	fields := log.NewFields()
	fields[log.FieldSplitDay] = req.Day
	s.events.LogMutation(r.Context(), log.OpSetSplitDay, engine.Version(), fields)
	NewJSONResponse().Body(s.rangeView()).Write(w, r)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	engine := s.costs.Engine()
	txs := engine.Transactions()
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionView{
			Date:     tx.Date,
			Text:     tx.Text,
			Amount:   tx.Amount,
			Account:  tx.Account,
			Label:    tx.Label,
			Sublabel: tx.Sublabel,
			Forecast: tx.IsForecast(),
		})
	}
	NewJSONResponse().Body(struct {
		Version      uint64            `json:"version"`
		Transactions []TransactionView `json:"transactions"`
	}{engine.Version(), out}).Write(w, r)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(SummaryView{
		Version: s.costs.Engine().Version(),
		Report:  s.costs.Report(),
	}).Write(w, r)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	engine := s.costs.Engine()
	NewJSONResponse().Body(LabelsView{
		Version:   engine.Version(),
		All:       engine.AllLabels(),
		Active:    engine.ActiveLabels(),
		Sublabels: engine.Sublabels(),
		Averaged:  s.costs.AveragedExpensesByLabel(),
	}).Write(w, r)
}

// handleLabel returns the averaged sublabel breakdown of one label.
func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	label := sanitizeInput(r.PathValue("label"))
	engine := s.costs.Engine()
	if !slices.Contains(engine.AllLabels(), label) {
		NotFound(fmt.Sprintf("unknown label %q", label)).Write(w, r)
		return
	}
	NewJSONResponse().Body(struct {
		Version  uint64             `json:"version"`
		Label    string             `json:"label"`
		Averaged []core.GroupAmount `json:"averaged"`
	}{engine.Version(), label, s.costs.AveragedExpensesBySublabel(label)}).Write(w, r)
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(struct {
		Version  uint64             `json:"version"`
		Total    float64            `json:"total"`
		Averaged []core.GroupAmount `json:"averaged"`
	}{s.costs.Engine().Version(), s.costs.Income(), s.costs.AveragedIncome()}).Write(w, r)
}

// handleMonthly serves the monthly series, optionally restricted to a label
// or a label/sublabel pair.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label := sanitizeInput(q.Get("label"))
	sublabel := sanitizeInput(q.Get("sublabel"))

	if sublabel != "" && label == "" {
		BadRequest("sublabel requires label").Write(w, r)
		return
	}
	var points []core.PeriodAmount
	switch {
	case sublabel != "":
		points = s.costs.MonthlyExpensesBySublabel(label, sublabel)
	case label != "":
		points = s.costs.MonthlyExpensesByLabel(label)
	case q.Get("group") == string(costs.ByLabel):
		points = s.costs.MonthlyExpenses(costs.ByLabel)
	default:
		points = s.costs.MonthlyExpenses()
	}
	NewJSONResponse().Body(SeriesView{s.costs.Engine().Version(), points}).Write(w, r)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(SeriesView{s.costs.Engine().Version(), s.costs.DailyExpenses()}).Write(w, r)
}

func (s *Server) handleSetActiveLabels(w http.ResponseWriter, r *http.Request) {
	var req ActiveLabelsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w, r)
		return
	}
	engine := s.costs.Engine()
	engine.SetActiveLabels(req.Labels)

	fields := log.NewFields()
	fields[log.FieldLabel] = req.Labels
	s.events.LogMutation(r.Context(), log.OpSetLabels, engine.Version(), fields)
	s.handleLabels(w, r)
}

func (s *Server) handleSetActiveSublabels(w http.ResponseWriter, r *http.Request) {
	var req ActiveSublabelsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w, r)
		return
	}
	engine := s.costs.Engine()
	engine.SetActiveSublabels(req.Sublabels)
	s.events.LogMutation(r.Context(), log.OpSetSublabels, engine.Version(), log.NewFields())
	s.handleLabels(w, r)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(err.Error()).Write(w, r)
		return
	}
	pair := core.LabelPair{Label: sanitizeInput(req.Label), Sublabel: sanitizeInput(req.Sublabel)}
	if err := s.costs.DropCostsByConfig([]core.LabelPair{pair}); err != nil {
		s.reject(w, r, log.OpDrop, err)
		return
	}
	engine := s.costs.Engine()
	s.events.LogMutation(r.Context(), log.OpDrop, engine.Version(), log.NewFields().WithLabel(pair.Label, pair.Sublabel))
	s.handleLabels(w, r)
}

// handleExport writes the current report through the configured writer.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Body(errorBody{Error: "report export not configured"}).Write(w, r)
		return
	}
	ref, err := s.reports.WriteReport(r.Context(), s.costs.Report())
	if err != nil {
		s.events.LogError(r.Context(), "Report export failed", err, log.OpExport, log.NewFields())
		NewJSONResponse().Status(http.StatusBadGateway).
			Body(errorBody{Error: "report export failed"}).Write(w, r)
		return
	}
	NewJSONResponse().Body(map[string]string{"ref": ref}).Write(w, r)
}

// reject answers a refused mutation. The engine already kept its prior
// state.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "View update failed", err, op, log.NewFields())
	} else {
		args := []any{log.FieldOperation, op, log.FieldError, err}
		var rangeErr *core.DateRangeError
		if errors.As(err, &rangeErr) {
			args = append(args, log.FieldCheck, string(rangeErr.Check))
		}
		s.logger.WarnContext(r.Context(), "View update rejected", args...)
	}
	resp.Write(w, r)
}
