package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/providers"
	"github.com/Eibon7/roastr-ai-sub021/webhook/idempotency"
	"github.com/Eibon7/roastr-ai-sub021/webhook/ratelimit"
	"github.com/Eibon7/roastr-ai-sub021/webhook/riskscan"
	"github.com/Eibon7/roastr-ai-sub021/webhook/schema"
	"github.com/Eibon7/roastr-ai-sub021/webhook/signature"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

/* Pipeline is the ingestion trust boundary for inbound webhooks.
 * Each delivery runs the gates in a fixed order: rate limit, body
 * presence and size, signature over the raw bytes, JSON parse, schema
 * validation, advisory risk scan, idempotency claim, handler dispatch.
 * Any gate may end the run; no gate is revisited.
 *
 * Signature verification runs before parsing on purpose: a request
 * that fails both must report the signature failure, so an
 * unauthenticated caller learns nothing about payload-shape validity.
 */

// DefaultMaxBodyBytes caps the raw request body at 1 MiB.
const DefaultMaxBodyBytes = 1 << 20

// DefaultIdempotencyTTL is how long a claimed event id stays deduped.
const DefaultIdempotencyTTL = 24 * time.Hour

// Options tunes pipeline behavior beyond its collaborators.
type Options struct {
	MaxBodyBytes   int64
	IdempotencyTTL time.Duration

	// InsecureSkipVerification disables the signature gate. Local
	// development only; the name is deliberately alarming and main
	// logs a loud warning when it is set.
	InsecureSkipVerification bool
}

// Pipeline orchestrates one delivery end to end. Safe for concurrent
// use: all mutable state lives in the Redis-backed collaborators.
type Pipeline struct {
	limiter ratelimit.Limiter
	store   idempotency.Store
	schemas *schema.Registry
	scanner *riskscan.Scanner
	handler Handler
	metrics Metrics
	logger  zerolog.Logger
	opts    Options
}

// NewPipeline wires the gates together.
func NewPipeline(
	limiter ratelimit.Limiter,
	store idempotency.Store,
	schemas *schema.Registry,
	scanner *riskscan.Scanner,
	handler Handler,
	metrics Metrics,
	logger zerolog.Logger,
	opts Options,
) *Pipeline {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Pipeline{
		limiter: limiter,
		store:   store,
		schemas: schemas,
		scanner: scanner,
		handler: handler,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
	}
}

// Process runs one delivery through every gate and returns the
// terminal outcome. It never returns an error: every failure mode maps
// to a disposition the transport can answer with.
func (p *Pipeline) Process(ctx context.Context, provider *providers.Provider, req RawRequest) Outcome {
	start := time.Now()
	requestID := uuid.NewString()

	logger := p.logger.With().
		Str("request_id", requestID).
		Str("provider", provider.Name).
		Logger()

	outcome := p.run(ctx, provider, req, requestID, logger)

	p.metrics.RequestProcessed(ctx, provider.Name, outcome.Disposition.String(), time.Since(start))
	switch outcome.Disposition {
	case Rejected:
		p.metrics.RequestRejected(ctx, provider.Name, outcome.Code)
		if outcome.Code == CodeRateLimited {
			p.metrics.RateLimited(ctx, provider.Name)
		}
	case Duplicate:
		p.metrics.DuplicateDetected(ctx, provider.Name, outcome.Event.Type)
	}

	return outcome
}

func (p *Pipeline) run(ctx context.Context, provider *providers.Provider, req RawRequest, requestID string, logger zerolog.Logger) Outcome {
	sourceKey := ratelimit.SourceKey(req.RemoteIP, provider.Name)
	if !p.limiter.Allow(ctx, sourceKey) {
		logger.Warn().
			Str("source_key", ratelimit.Redact(sourceKey)).
			Msg("webhook delivery rate limited")
		return rejected(requestID, 429, CodeRateLimited, "rate limit exceeded for webhook source")
	}

	if len(req.Body) == 0 {
		return rejected(requestID, 400, CodeMissingBody, "request body is required")
	}
	if int64(len(req.Body)) > p.opts.MaxBodyBytes {
		logger.Warn().
			Int("body_bytes", len(req.Body)).
			Int64("max_bytes", p.opts.MaxBodyBytes).
			Msg("webhook body exceeds size limit")
		return rejected(requestID, 413, CodeBodyTooLarge, "request body exceeds maximum size")
	}

	if p.opts.InsecureSkipVerification {
		logger.Warn().Msg("signature verification skipped, insecure mode is enabled")
	} else {
		header := req.Headers.Get(provider.SignatureHeader)
		result := signature.Verify(req.Body, header, provider.Secret, provider.Tolerance)
		if !result.Valid {
			logger.Warn().
				Str("reason", result.Err).
				Int64("timestamp_age_seconds", result.TimestampAge).
				Msg("webhook signature rejected")
			return rejected(requestID, 401, CodeInvalidSignature, "signature verification failed")
		}
	}

	var envelope map[string]any
	if err := json.Unmarshal(req.Body, &envelope); err != nil {
		return rejected(requestID, 400, CodeInvalidJSON, "request body is not valid JSON")
	}

	eventType, _ := envelope["type"].(string)
	data, fieldErrs := p.schemas.Validate(eventType, envelope)
	if len(fieldErrs) > 0 {
		logFieldErrors(logger, eventType, fieldErrs)
		outcome := rejected(requestID, 400, CodeInvalidStructure, "event failed schema validation")
		outcome.FieldErrors = fieldErrs
		return outcome
	}

	risk := p.scanner.Scan(envelope)
	if risk.Suspicious {
		// Advisory only. Blocking here would turn a pattern false
		// positive into a payment outage.
		logger.Warn().
			Strs("patterns", risk.Patterns).
			Int("max_depth", risk.MaxDepth).
			Bool("oversized_collection", risk.HasOversizedCollection).
			Msg("webhook payload flagged as suspicious")
	}

	eventID, _ := envelope["id"].(string)
	event := &Event{Type: eventType, ID: eventID, Data: data}

	summary := map[string]any{
		"event_type": eventType,
		"request_id": requestID,
	}
	claim := p.store.Claim(ctx, eventID, summary, p.opts.IdempotencyTTL)
	if !claim.ShouldProcess {
		logger.Info().
			Str("event_type", eventType).
			Msg("duplicate webhook acknowledged without processing")
		return Outcome{
			Disposition: Duplicate,
			HTTPStatus:  200,
			Processed:   false,
			Idempotent:  true,
			Event:       event,
			Existing:    claim.Existing,
			RequestID:   requestID,
			Risk:        &risk,
		}
	}

	if err := p.handler.Handle(ctx, provider.Name, *event); err != nil {
		// The event is durably claimed; a non-2xx here would make the
		// provider retry a delivery that dedup will never reprocess.
		logger.Error().
			Err(err).
			Str("event_type", eventType).
			Msg("webhook handler failed after claim")
		p.metrics.HandlerFailed(ctx, provider.Name, eventType)
	}

	logger.Info().
		Str("event_type", eventType).
		Str("customer_email", MaskEmail(emailOf(data))).
		Msg("webhook event accepted")

	return Outcome{
		Disposition: Accepted,
		HTTPStatus:  200,
		Processed:   true,
		Event:       event,
		RequestID:   requestID,
		Risk:        &risk,
	}
}

func logFieldErrors(logger zerolog.Logger, eventType string, fieldErrs []schema.FieldError) {
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field+":"+fe.Code)
	}
	logger.Warn().
		Str("event_type", eventType).
		Strs("field_errors", fields).
		Msg("webhook event failed schema validation")
}

func emailOf(data map[string]any) string {
	email, _ := data["customer_email"].(string)
	return email
}

/* MaskEmail redacts an email address for audit logging: one character
 * of the local part survives. Unparseable values are fully masked so a
 * non-email never reaches the log verbatim.
 */
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
