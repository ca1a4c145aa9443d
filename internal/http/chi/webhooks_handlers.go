package chi

import (
	"net/http"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/metrics"
	"github.com/Eibon7/roastr-ai-sub021/providers"
	"github.com/Eibon7/roastr-ai-sub021/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

// WebhookHandlers sets up the webhook ingress routes
func WebhookHandlers(pipeline *webhook.Pipeline, providerLoader *providers.Loader, recorder *metrics.Recorder, maxBodyBytes int64) *chi.Mux {
	logger := httplog.NewLogger("webhook-gateway", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if recorder != nil {
		r.Get("/metrics", recorder.Handler().ServeHTTP)
	}

	// Webhook ingress routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/{provider}", postWebhook(pipeline, providerLoader, maxBodyBytes).ServeHTTP)
	})

	return r
}
