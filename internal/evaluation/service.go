package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"txguard/internal/evaluation/metrics"
	dErrors "txguard/pkg/domain-errors"
)

const (
	// MaxBatchSize caps the number of transactions in one batch call.
	MaxBatchSize = 100

	defaultBatchConcurrency = 8

	outcomeApproved = "approved"
	outcomeReview   = "review"
	outcomeRejected = "rejected"
)

// Service exposes the engine to transports with logging, metrics and tracing.
// It adds no decision logic of its own.
type Service struct {
	engine           *Engine
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	batchConcurrency int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithBatchConcurrency bounds how many batch items evaluate at once.
func WithBatchConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// NewService wraps engine. The engine is required.
func NewService(engine *Engine, opts ...ServiceOption) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("evaluation engine is required")
	}
	s := &Service{
		engine:           engine,
		logger:           slog.Default(),
		tracer:           otel.Tracer("txguard/evaluation"),
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Policy returns the engine's rule table.
func (s *Service) Policy() Policy {
	return s.engine.Policy()
}

// Evaluate runs one evaluation. Errors are the engine's, unchanged.
func (s *Service) Evaluate(ctx context.Context, req *TransactionRequest, customer *CustomerProfile) (*TransactionResult, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.Evaluate")
	defer span.End()

	start := time.Now()
	result, err := s.engine.Evaluate(req, customer)
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	txType := ""
	if req != nil {
		txType = string(req.TransactionType)
	}

	if err != nil {
		s.metrics.IncrementOutcome(outcomeRejected, txType)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "transaction rejected",
			"transaction_type", txType,
			"error", err,
		)
		return nil, err
	}

	outcome := outcomeApproved
	if result.RequiresReview() {
		outcome = outcomeReview
	}
	s.metrics.IncrementOutcome(outcome, txType)
	for _, rule := range result.AppliedRules() {
		s.metrics.IncrementRule(rule)
	}

	span.SetAttributes(
		attribute.String("txguard.reference_number", result.ReferenceNumber()),
		attribute.Bool("txguard.requires_review", result.RequiresReview()),
		attribute.StringSlice("txguard.applied_rules", result.AppliedRules()),
	)

	s.logger.InfoContext(ctx, "transaction evaluated",
		"reference_number", result.ReferenceNumber(),
		"customer_id", customer.ID,
		"transaction_type", txType,
		"channel", req.Channel,
		"outcome", outcome,
		"processed_amount", result.ProcessedAmount().StringFixed(centPlaces),
		"message_count", len(result.Messages()),
	)

	return result, nil
}

// BatchItem is one transaction of a batch.
type BatchItem struct {
	Request  *TransactionRequest
	Customer *CustomerProfile
}

// BatchOutcome holds either the result or the validation error of one item.
type BatchOutcome struct {
	Result *TransactionResult
	Err    error
}

// EvaluateBatch evaluates items concurrently and returns outcomes in input
// order. A failing item does not affect the others; only cancellation of ctx
// fails the whole batch.
func (s *Service) EvaluateBatch(ctx context.Context, items []BatchItem) ([]BatchOutcome, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "batch must contain at least one item")
	}
	if len(items) > MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("batch exceeds maximum size of %d", MaxBatchSize))
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.EvaluateBatch",
		trace.WithAttributes(attribute.Int("txguard.batch_size", len(items))),
	)
	defer span.End()
	s.metrics.ObserveBatchSize(len(items))

	outcomes := make([]BatchOutcome, len(items))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Evaluate(ctx, item.Request, item.Customer)
			outcomes[i] = BatchOutcome{Result: res, Err: err}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "batch evaluation cancelled")
	}

	return outcomes, nil
}
