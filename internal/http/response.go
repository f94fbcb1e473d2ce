package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"myfinances/internal/core"
	"myfinances/internal/log"
)

// JSONResponse builds a JSON reply with a fluent API.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponse {
	return &JSONResponse{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

// Write sends the response. Encoding errors are logged; the status line is
// already out by then.
func (b *JSONResponse) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

// errorBody is the JSON shape of every error reply.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Check string `json:"check,omitempty"`
}

// ErrorResponse maps an error to its status: range and configuration
// problems are 422, a missing label pair is 404, anything else 500.
func ErrorResponse(err error) *JSONResponse {
	body := errorBody{Error: err.Error()}
	status := http.StatusInternalServerError

	var rangeErr *core.DateRangeError
	switch {
	case errors.As(err, &rangeErr):
		status = http.StatusUnprocessableEntity
		body.Kind = "date_range"
		body.Check = string(rangeErr.Check)
	case errors.Is(err, core.ErrDateRange):
		status = http.StatusUnprocessableEntity
		body.Kind = "date_range"
	case errors.Is(err, core.ErrConfiguration):
		status = http.StatusUnprocessableEntity
		body.Kind = "configuration"
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		body.Kind = "not_found"
	}
	return NewJSONResponse().Status(status).Body(body)
}

// BadRequest replies 400 with msg.
func BadRequest(msg string) *JSONResponse {
	return NewJSONResponse().Status(http.StatusBadRequest).Body(errorBody{Error: msg, Kind: "bad_request"})
}

// NotFound replies 404 with msg.
func NotFound(msg string) *JSONResponse {
	return NewJSONResponse().Status(http.StatusNotFound).Body(errorBody{Error: msg, Kind: "not_found"})
}
