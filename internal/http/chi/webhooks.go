package chi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/providers"
	"github.com/Eibon7/roastr-ai-sub021/webhook"
	"github.com/Eibon7/roastr-ai-sub021/webhook/schema"
	"github.com/go-chi/chi/v5"
)

/* HTTP layer DTOs for the webhook ingress
 * Separate from domain entities to avoid leaking internal structure
 */

// receivedResponse is the body for every non-rejection path.
type receivedResponse struct {
	Received   bool   `json:"received"`
	Processed  bool   `json:"processed"`
	Idempotent bool   `json:"idempotent,omitempty"`
	Message    string `json:"message,omitempty"`
}

// rejectionResponse is the body for every rejection path. Details are
// attached only for schema rejections and never echo payload values.
type rejectionResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []schema.FieldError `json:"details,omitempty"`
}

// postWebhook handles POST /v1/webhooks/:provider
func postWebhook(pipeline *webhook.Pipeline, providerLoader *providers.Loader, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "provider")
		provider, err := providerLoader.Get(name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, rejectionResponse{
				Error: "unknown webhook provider",
				Code:  "UNKNOWN_PROVIDER",
			})
			return
		}

		// Cap at one byte over the pipeline limit so the pipeline's own
		// size gate produces the 413, except for grossly oversized
		// bodies which are cut off here without buffering.
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes+1))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, rejectionResponse{
				Error: "request body exceeds maximum size",
				Code:  webhook.CodeBodyTooLarge,
			})
			return
		}
		defer r.Body.Close()

		outcome := pipeline.Process(r.Context(), provider, webhook.RawRequest{
			Body:       body,
			Headers:    r.Header,
			RemoteIP:   remoteIP(r),
			ReceivedAt: time.Now(),
		})

		writeOutcome(w, outcome)
	})
}

func writeOutcome(w http.ResponseWriter, outcome webhook.Outcome) {
	if outcome.Disposition == webhook.Rejected {
		writeJSON(w, outcome.HTTPStatus, rejectionResponse{
			Error:   outcome.Message,
			Code:    outcome.Code,
			Details: outcome.FieldErrors,
		})
		return
	}

	writeJSON(w, outcome.HTTPStatus, receivedResponse{
		Received:   true,
		Processed:  outcome.Processed,
		Idempotent: outcome.Idempotent,
		Message:    outcome.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// remoteIP strips the port from RemoteAddr; proxies are expected to be
// handled by chi middleware upstream when deployed behind one.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
