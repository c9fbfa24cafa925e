package ctxutil

import "context"

type traceKey struct{}

// Trace identifies one inbound request across logs and spans.
type Trace struct {
	TraceID   string
	RequestID string
}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func GetTrace(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// LogFields returns the trace and actor of ctx as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	var kv []interface{}
	if t, ok := GetTrace(ctx); ok {
		if t.TraceID != "" {
			kv = append(kv, "trace_id", t.TraceID)
		}
		if t.RequestID != "" {
			kv = append(kv, "request_id", t.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil {
		kv = append(kv, "user_id", rd.UserID)
		if rd.Role != "" {
			kv = append(kv, "role", rd.Role)
		}
	}
	return kv
}
