package webhook

import (
	"fmt"

	"github.com/Eibon7/roastr-ai-sub021/webhook/idempotency"
	"github.com/Eibon7/roastr-ai-sub021/webhook/riskscan"
	"github.com/Eibon7/roastr-ai-sub021/webhook/schema"
)

/* Disposition is the terminal state of one pipeline run
 * Every delivery ends Accepted, Duplicate, or Rejected; no state is
 * revisited and nothing downstream of the response depends on it
 */
type Disposition int

const (
	Accepted Disposition = iota + 1
	Duplicate
	Rejected
)

// String returns the string representation of the disposition
func (d Disposition) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Validate checks if the disposition is valid
func (d Disposition) Validate() error {
	if d < Accepted || d > Rejected {
		return fmt.Errorf("invalid disposition: %d", d)
	}
	return nil
}

// Rejection codes returned to the sender. The code names the gate that
// rejected, never details of what the gate observed.
const (
	CodeRateLimited      = "WEBHOOK_RATE_LIMIT"
	CodeMissingBody      = "MISSING_BODY"
	CodeBodyTooLarge     = "BODY_TOO_LARGE"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidStructure = "INVALID_EVENT_STRUCTURE"
)

// Outcome carries everything the response writer and the audit log need
// about one pipeline run. It is never persisted.
type Outcome struct {
	Disposition Disposition
	HTTPStatus  int

	// Rejection fields. Message describes the expected shape only and
	// never echoes request contents.
	Code        string
	Message     string
	FieldErrors []schema.FieldError

	// Acceptance fields.
	Processed  bool
	Idempotent bool
	Event      *Event
	Existing   *idempotency.Record

	// Diagnostics, attached for logging regardless of disposition.
	RequestID string
	Risk      *riskscan.Assessment
}

// rejected builds a terminal rejection outcome.
func rejected(requestID string, status int, code, message string) Outcome {
	return Outcome{
		Disposition: Rejected,
		HTTPStatus:  status,
		Code:        code,
		Message:     message,
		RequestID:   requestID,
	}
}
