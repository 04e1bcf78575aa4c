package handler

import (
	"time"

	"txguard/internal/evaluation"
	dErrors "txguard/pkg/domain-errors"
)

const amountPlaces = 2

// EvaluateResponse is the HTTP response for POST /transactions/evaluate.
type EvaluateResponse struct {
	ProcessedAmount string    `json:"processed_amount"`
	RequiresReview  bool      `json:"requires_review"`
	Messages        []string  `json:"messages"`
	AppliedRules    []string  `json:"applied_rules"`
	ReferenceNumber string    `json:"reference_number"`
	EvaluatedAt     time.Time `json:"evaluated_at"`
}

// FromResult converts a domain TransactionResult to an HTTP response.
// Amounts are rendered with exactly two decimal places.
func FromResult(result *evaluation.TransactionResult) *EvaluateResponse {
	messages := result.Messages()
	if messages == nil {
		messages = []string{}
	}
	rules := result.AppliedRules()
	if rules == nil {
		rules = []string{}
	}
	return &EvaluateResponse{
		ProcessedAmount: result.ProcessedAmount().StringFixed(amountPlaces),
		RequiresReview:  result.RequiresReview(),
		Messages:        messages,
		AppliedRules:    rules,
		ReferenceNumber: result.ReferenceNumber(),
		EvaluatedAt:     result.EvaluatedAt(),
	}
}

// BatchEvaluateResponse is the HTTP response for POST /transactions/evaluate/batch.
type BatchEvaluateResponse struct {
	Results []BatchResultResponse `json:"results"`
	Summary BatchSummary          `json:"summary"`
}

// BatchResultResponse carries either a result or an error for one item.
type BatchResultResponse struct {
	Index  int               `json:"index"`
	Result *EvaluateResponse `json:"result,omitempty"`
	Error  *BatchItemError   `json:"error,omitempty"`
}

// BatchItemError mirrors the single-item error body.
type BatchItemError struct {
	Code    string `json:"error"`
	Message string `json:"error_description"`
}

// BatchSummary counts outcomes across the batch.
type BatchSummary struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Review   int `json:"review"`
	Rejected int `json:"rejected"`
}

// FromBatchOutcomes converts service outcomes, keeping input order.
func FromBatchOutcomes(outcomes []evaluation.BatchOutcome) *BatchEvaluateResponse {
	resp := &BatchEvaluateResponse{
		Results: make([]BatchResultResponse, len(outcomes)),
		Summary: BatchSummary{Total: len(outcomes)},
	}
	for i, o := range outcomes {
		item := BatchResultResponse{Index: i}
		switch {
		case o.Err != nil:
			item.Error = &BatchItemError{
				Code:    string(dErrors.CodeOf(o.Err)),
				Message: o.Err.Error(),
			}
			resp.Summary.Rejected++
		case o.Result != nil:
			item.Result = FromResult(o.Result)
			if o.Result.RequiresReview() {
				resp.Summary.Review++
			} else {
				resp.Summary.Approved++
			}
		}
		resp.Results[i] = item
	}
	return resp
}

// PolicyResponse is the HTTP response for GET /transactions/policy.
type PolicyResponse struct {
	MobileDiscountRate    string                `json:"mobile_discount_rate"`
	FXFeeRate             string                `json:"fx_fee_rate"`
	NetworkFee            string                `json:"network_fee"`
	LoyaltyTiers          []LoyaltyTierResponse `json:"loyalty_tiers"`
	FrequentTravelFactor  string                `json:"frequent_travel_factor"`
	LargeAmountMultiplier string                `json:"large_amount_multiplier"`
	VelocityThreshold     int                   `json:"velocity_threshold"`
	FutureSkew            string                `json:"future_skew"`
	StaleAfter            string                `json:"stale_after"`
}

// LoyaltyTierResponse is one loyalty discount tier.
type LoyaltyTierResponse struct {
	MinScore string `json:"min_score"`
	Factor   string `json:"factor"`
}

// FromPolicy converts the active policy to its wire form.
func FromPolicy(p evaluation.Policy) *PolicyResponse {
	tiers := make([]LoyaltyTierResponse, 0, len(p.LoyaltyTiers))
	for _, t := range p.LoyaltyTiers {
		tiers = append(tiers, LoyaltyTierResponse{
			MinScore: t.MinScore.String(),
			Factor:   t.Factor.String(),
		})
	}
	return &PolicyResponse{
		MobileDiscountRate:    p.MobileDiscountRate.String(),
		FXFeeRate:             p.FXFeeRate.String(),
		NetworkFee:            p.NetworkFee.StringFixed(amountPlaces),
		LoyaltyTiers:          tiers,
		FrequentTravelFactor:  p.FrequentTravelFactor.String(),
		LargeAmountMultiplier: p.LargeAmountMultiplier.String(),
		VelocityThreshold:     p.VelocityThreshold,
		FutureSkew:            p.FutureSkew.String(),
		StaleAfter:            p.StaleAfter.String(),
	}
}
