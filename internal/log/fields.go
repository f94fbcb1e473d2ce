package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldVersion    = "version"

	FieldStart    = "start"
	FieldEnd      = "end"
	FieldSplitDay = "month_split_day"
	FieldMonths   = "months"
	FieldRows     = "rows"
	FieldCheck    = "check"
	FieldLabel    = "label"
	FieldSublabel = "sublabel"
	FieldAccount  = "account"
	FieldFile     = "file"
	FieldReason   = "reason"
	FieldImportID = "import_id"
	FieldSheetRef = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEngine    = "monthly"
	ComponentCosts     = "costs"
	ComponentIngest    = "ingest"
	ComponentLabeling  = "labeling"
	ComponentBudget    = "budget"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpSetRange     = "set_range"
	OpSetSplitDay  = "set_split_day"
	OpSetLabels    = "set_active_labels"
	OpSetSublabels = "set_active_sublabels"
	OpDrop         = "drop_costs"
	OpAdd          = "add_costs"
	OpLoad         = "load"
	OpLabel        = "label"
	OpPublish      = "publish"
	OpExport       = "export"
	OpRender       = "render"
	OpShutdown     = "shutdown"
	OpStartup      = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDateRange     = "date_range_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds the analysed date range. Dates are passed already formatted
// so this package stays free of domain types.
func (f LogFields) WithRange(start, end string, months int) LogFields {
	f[FieldStart] = start
	f[FieldEnd] = end
	f[FieldMonths] = months
	return f
}

// WithLabel adds label/sublabel fields
func (f LogFields) WithLabel(label, sublabel string) LogFields {
	f[FieldLabel] = label
	if sublabel != "" {
		f[FieldSublabel] = sublabel
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
