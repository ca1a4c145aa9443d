package webhook

import (
	"context"
	"net/http"
	"time"
)

/* Domain types for the inbound trust boundary.
 * A RawRequest is what the transport hands over: untrusted bytes plus
 * the headers needed to authenticate them. An Event only exists after
 * the pipeline has verified, parsed, and schema-validated the request.
 */

// RawRequest is one inbound delivery before any trust is established.
// Body must be the exact bytes received; the signature covers them.
type RawRequest struct {
	Body       []byte
	Headers    http.Header
	RemoteIP   string
	ReceivedAt time.Time
}

// Event is a validated webhook event. Data holds only schema-known
// fields; anything else was dropped during validation.
type Event struct {
	Type string
	ID   string
	Data map[string]any
}

// Handler reacts to a validated event. Invoked at most once per
// distinct event id under normal operation; handlers must still be
// idempotent because the dedup store fails open during outages.
type Handler interface {
	Handle(ctx context.Context, provider string, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, provider string, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, provider string, event Event) error {
	return f(ctx, provider, event)
}

// Metrics is the observability surface the pipeline reports into.
type Metrics interface {
	RequestProcessed(ctx context.Context, provider, disposition string, duration time.Duration)
	RequestRejected(ctx context.Context, provider, code string)
	DuplicateDetected(ctx context.Context, provider, eventType string)
	HandlerFailed(ctx context.Context, provider, eventType string)
	RateLimited(ctx context.Context, provider string)
}

// NopMetrics discards all observations (for tests or disabled metrics)
type NopMetrics struct{}

func (NopMetrics) RequestProcessed(context.Context, string, string, time.Duration) {}
func (NopMetrics) RequestRejected(context.Context, string, string)                 {}
func (NopMetrics) DuplicateDetected(context.Context, string, string)               {}
func (NopMetrics) HandlerFailed(context.Context, string, string)                   {}
func (NopMetrics) RateLimited(context.Context, string)                             {}
