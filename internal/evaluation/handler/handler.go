package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"txguard/internal/evaluation"
	"txguard/pkg/platform/httputil"
	"txguard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Service defines the interface for transaction evaluation operations.
type Service interface {
	Evaluate(ctx context.Context, req *evaluation.TransactionRequest, customer *evaluation.CustomerProfile) (*evaluation.TransactionResult, error)
	EvaluateBatch(ctx context.Context, items []evaluation.BatchItem) ([]evaluation.BatchOutcome, error)
	Policy() evaluation.Policy
}

// Handler wires transaction endpoints to the evaluation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a transaction handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts transaction endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/evaluate", h.HandleEvaluate)
		r.Post("/evaluate/batch", h.HandleEvaluateBatch)
		r.Get("/policy", h.HandlePolicy)
	})
}

// HandleEvaluate handles POST /transactions/evaluate requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Evaluate(ctx, req.ParsedRequest(), req.ParsedCustomer())
	if err != nil {
		h.logger.WarnContext(ctx, "transaction evaluation failed",
			"request_id", requestID,
			"customer_id", req.Customer.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction evaluation served",
		"request_id", requestID,
		"customer_id", req.Customer.ID,
		"reference_number", result.ReferenceNumber(),
		"requires_review", result.RequiresReview(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleEvaluateBatch handles POST /transactions/evaluate/batch requests.
// Per-item validation errors are reported inline; the request fails only when
// the body is malformed or the batch as a whole cannot run.
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchEvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcomes, err := h.service.EvaluateBatch(ctx, req.BatchItems())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch evaluation failed",
			"request_id", requestID,
			"batch_size", len(req.Items),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := FromBatchOutcomes(outcomes)
	h.logger.InfoContext(ctx, "batch evaluation served",
		"request_id", requestID,
		"batch_size", resp.Summary.Total,
		"review", resp.Summary.Review,
		"rejected", resp.Summary.Rejected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePolicy handles GET /transactions/policy requests.
func (h *Handler) HandlePolicy(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromPolicy(h.service.Policy()))
}
