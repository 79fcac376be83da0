package observability

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Audit emits a structured audit event for a privileged mutation. Caller
// identity attrs are appended by the handler. The event is also attached
// to the active span so traces carry the mutation record.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)

	if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
		span.AddEvent("audit."+event, trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		))
	}
}
