package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"myfinances/internal/core"
)

// maxBodyBytes caps request bodies; every payload is a handful of fields.
const maxBodyBytes = 64 << 10

// RangeRequest changes the analysed range. An omitted bound is kept.
type RangeRequest struct {
	Start *core.Date `json:"start"`
	End   *core.Date `json:"end"`
}

type SplitDayRequest struct {
	Day int `json:"day"`
}

type ActiveLabelsRequest struct {
	Labels []string `json:"labels"`
}

type ActiveSublabelsRequest struct {
	Sublabels map[string][]string `json:"sublabels"`
}

// DropRequest removes one label/sublabel pair from the view.
type DropRequest struct {
	Label    string `json:"label"`
	Sublabel string `json:"sublabel"`
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput trims s and removes control characters other than tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
