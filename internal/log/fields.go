package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldWorkspaceID   = "workspace_id"
	FieldCycleID       = "cycle_id"
	FieldMonth         = "month"
	FieldTable         = "table"
	FieldEventType     = "event_type"
	FieldSourceID      = "source_id"
	FieldItems         = "items"
	FieldUpserted      = "upserted"
	FieldSkipped       = "skipped"
	FieldPruned        = "pruned"
	FieldFailed        = "failed"
)

// Components
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentCycle     = "cycle"
	ComponentSync      = "sync"
	ComponentExchange  = "exchange"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations
const (
	OpKickstart = "kickstart"
	OpForecast  = "forecast"
	OpSync      = "sync"
	OpConvert   = "convert"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

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

// WithCycle adds the workspace, cycle and month of a cycle operation.
func (f LogFields) WithCycle(workspaceID, cycleID, month string) LogFields {
	f[FieldWorkspaceID] = workspaceID
	if cycleID != "" {
		f[FieldCycleID] = cycleID
	}
	f[FieldMonth] = month
	return f
}

// WithEvent adds the fields identifying a sync event.
func (f LogFields) WithEvent(table, eventType, sourceID string) LogFields {
	f[FieldTable] = table
	f[FieldEventType] = eventType
	f[FieldSourceID] = sourceID
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

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
