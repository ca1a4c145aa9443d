package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/config"
	"github.com/Eibon7/roastr-ai-sub021/internal/http/chi"
	"github.com/Eibon7/roastr-ai-sub021/metrics"
	"github.com/Eibon7/roastr-ai-sub021/providers"
	"github.com/Eibon7/roastr-ai-sub021/webhook"
	"github.com/Eibon7/roastr-ai-sub021/webhook/idempotency"
	idemredis "github.com/Eibon7/roastr-ai-sub021/webhook/idempotency/redis"
	"github.com/Eibon7/roastr-ai-sub021/webhook/ratelimit"
	"github.com/Eibon7/roastr-ai-sub021/webhook/riskscan"
	"github.com/Eibon7/roastr-ai-sub021/webhook/schema"
	"github.com/go-chi/httplog"
)

const shutdownTimeout = 30 * time.Second

/* Wiring for the webhook gateway binary.
 * Dependencies are initialized here and flow downward only: the HTTP
 * layer imports the domain, the domain imports its storage adapters.
 */

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := httplog.NewLogger("webhook-gateway", httplog.Options{
		JSON:     cfg.Logging.JSON,
		LogLevel: cfg.Logging.Level,
	})

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	store, err := idemredis.NewRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connecting to redis")
		return
	}
	defer store.Close(ctx)

	limiter := ratelimit.NewRedisLimiter(
		store.GetClient(),
		cfg.Webhook.RateLimitRequests,
		cfg.Webhook.RateLimitWindow,
		logger,
	)

	providerLoader := providers.NewLoader()
	if err := providerLoader.Load(cfg.Webhook.ProvidersFile, cfg.Webhook.Tolerance); err != nil {
		logger.Error().Err(err).Msg("loading providers")
		return
	}

	recorder, err := metrics.NewRecorder(nil)
	if err != nil {
		logger.Error().Err(err).Msg("initializing metrics")
		return
	}
	defer recorder.Shutdown(ctx)

	if cfg.Webhook.InsecureSkipVerification {
		logger.Warn().Msg("SIGNATURE VERIFICATION DISABLED, never run this in production")
	}

	// Demo handler: downstream business handlers plug in here.
	handler := webhook.HandlerFunc(func(ctx context.Context, provider string, event webhook.Event) error {
		email, _ := event.Data["customer_email"].(string)
		logger.Info().
			Str("provider", provider).
			Str("event_type", event.Type).
			Str("customer_email", webhook.MaskEmail(email)).
			Msg("event dispatched")
		return nil
	})

	pipeline := webhook.NewPipeline(
		limiter,
		store,
		schema.Billing(),
		riskscan.NewScanner(),
		handler,
		recorder,
		logger,
		webhook.Options{
			MaxBodyBytes:             cfg.Webhook.MaxBodyBytes,
			IdempotencyTTL:           cfg.Webhook.IdempotencyTTL,
			InsecureSkipVerification: cfg.Webhook.InsecureSkipVerification,
		},
	)

	reaper := idempotency.NewReaper(store, cfg.Webhook.ReapInterval, logger)
	go reaper.Run(ctx)

	r := chi.WebhookHandlers(pipeline, providerLoader, recorder, cfg.Webhook.MaxBodyBytes)
	srv := &http.Server{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Int("port", cfg.Server.Port).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server stopped")
		return
	}
	if err := <-errShutdown; err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("forcing server close: %w", err)
	}
}
