package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"txguard/internal/evaluation"
	"txguard/internal/evaluation/handler"
	evalmetrics "txguard/internal/evaluation/metrics"
	"txguard/internal/evaluation/reference"
	"txguard/internal/platform/config"
	"txguard/internal/platform/httpserver"
	"txguard/internal/platform/logger"
	platformmetrics "txguard/internal/platform/metrics"
	"txguard/internal/platform/redis"
	httptransport "txguard/internal/transport/http"
	"txguard/pkg/platform/sentinel"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/evaluation.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	evalMetrics := evalmetrics.New(registry)

	policy, err := buildPolicy(cfg.Policy)
	if err != nil {
		return err
	}

	refs, redisClient, err := buildReferenceGenerator(ctx, cfg, log, evalMetrics)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	engine, err := evaluation.NewEngine(policy, evaluation.WithReferenceGenerator(refs))
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	service, err := evaluation.NewService(engine,
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evalMetrics),
		evaluation.WithBatchConcurrency(cfg.BatchConcurrency),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	checks := map[string]httptransport.HealthChecker{}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   log,
		Metrics:  platformmetrics.New(registry),
		Gatherer: registry,
		Checks:   checks,
	}, handler.New(service, log))

	srv := httpserver.New(cfg.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting txguard", "addr", cfg.Addr, "reference_generator", cfg.ReferenceKind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildPolicy applies environment overrides to the default rule table.
func buildPolicy(o config.PolicyOverrides) (evaluation.Policy, error) {
	p := evaluation.DefaultPolicy()
	if o.MobileDiscountRate != nil {
		p.MobileDiscountRate = *o.MobileDiscountRate
	}
	if o.FXFeeRate != nil {
		p.FXFeeRate = *o.FXFeeRate
	}
	if o.NetworkFee != nil {
		p.NetworkFee = *o.NetworkFee
	}
	if o.LargeAmountMultiplier != nil {
		p.LargeAmountMultiplier = *o.LargeAmountMultiplier
	}
	if o.FrequentTravelFactor != nil {
		p.FrequentTravelFactor = *o.FrequentTravelFactor
	}
	if o.VelocityThreshold != nil {
		p.VelocityThreshold = *o.VelocityThreshold
	}
	if o.FutureSkew != nil {
		p.FutureSkew = *o.FutureSkew
	}
	if o.StaleAfter != nil {
		p.StaleAfter = *o.StaleAfter
	}
	if err := p.Validate(); err != nil {
		return evaluation.Policy{}, err
	}
	return p, nil
}

// buildReferenceGenerator returns the configured generator. An unreachable
// Redis at startup degrades to UUID references instead of refusing to start.
func buildReferenceGenerator(ctx context.Context, cfg config.Config, log *slog.Logger, m *evalmetrics.Metrics) (evaluation.ReferenceGenerator, *redis.Client, error) {
	if cfg.ReferenceKind != config.ReferenceRedis {
		return reference.NewUUID(), nil, nil
	}

	client, err := redis.New(ctx, cfg.Redis)
	if errors.Is(err, sentinel.ErrUnavailable) {
		log.Warn("redis unavailable, using uuid references", "error", err)
		return reference.NewUUID(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	seq := reference.NewSequence(client,
		reference.WithSequenceLogger(log),
		reference.WithFallbackCounter(m.ReferenceFallbacks),
	)
	return seq, client, nil
}
