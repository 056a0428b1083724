package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUsername   = "username"
	FieldKey        = "storage_key"
	FieldTxID       = "tx_id"
	FieldTxType     = "tx_type"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldScreen     = "screen"
	FieldTxCount    = "tx_count"
	FieldReason     = "reason"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentPersist = "persist"
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentAuth    = "auth"
	ComponentBackend = "backend"
	ComponentTUI     = "tui"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpLoad       = "load"
	OpSave       = "save"
	OpAppend     = "append"
	OpSwitchUser = "switch_user"
	OpLogout     = "logout"
	OpNavigate   = "navigate"
	OpRender     = "render"
	OpSignIn     = "sign_in"
	OpSignUp     = "sign_up"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
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

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

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

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(username string) LogFields {
	f[FieldUsername] = username
	return f
}

// WithTransaction adds the fields of an appended ledger entry. Category is
// omitted for income.
func (f LogFields) WithTransaction(id int64, txType string, amount float64, category string) LogFields {
	f[FieldTxID] = id
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, route, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if route != "" {
		f[FieldRoute] = route
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
