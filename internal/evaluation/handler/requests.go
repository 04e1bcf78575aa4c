package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"txguard/internal/evaluation"
	dErrors "txguard/pkg/domain-errors"
	pstrings "txguard/pkg/platform/strings"
)

const (
	defaultCurrency    = "USD"
	maxCustomerIDLen   = 64
	maxLocationLen     = 128
	maxTravelLocations = 50

	// Monetary inputs fit a numeric(26,8) column.
	maxIntegerDigits  = 18
	maxFractionDigits = 8
)

// EvaluateRequest is the HTTP request body for POST /transactions/evaluate.
type EvaluateRequest struct {
	Transaction TransactionPayload `json:"transaction"`
	Customer    CustomerPayload    `json:"customer"`

	// Parsed values (populated by Validate)
	parsedRequest  *evaluation.TransactionRequest
	parsedCustomer *evaluation.CustomerProfile
}

// TransactionPayload is the wire form of a transaction. Amounts are decimal
// strings to avoid float rounding.
type TransactionPayload struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Channel         string          `json:"channel"`
	Location        string          `json:"location"`
	Currency        string          `json:"currency"`
	Timestamp       *time.Time      `json:"timestamp,omitempty"`
}

// CustomerPayload is the wire form of a customer profile.
type CustomerPayload struct {
	ID                      string          `json:"id"`
	AccountType             string          `json:"account_type"`
	DailyLimit              decimal.Decimal `json:"daily_limit"`
	HasOverdraftProtection  bool            `json:"has_overdraft_protection"`
	OverdraftLimit          decimal.Decimal `json:"overdraft_limit"`
	AverageTransaction      decimal.Decimal `json:"average_transaction"`
	HomeLocation            string          `json:"home_location"`
	LastLoginLocation       string          `json:"last_login_location"`
	MonthlyTransactionCount int             `json:"monthly_transaction_count"`
	LoyaltyScore            decimal.Decimal `json:"loyalty_score"`
	FrequentTravelLocations []string        `json:"frequent_travel_locations"`
}

// Validate parses enums and normalizes free text. Amount positivity is left
// to the engine so its precondition message reaches the caller unchanged.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	req, err := r.Transaction.parse()
	if err != nil {
		return err
	}
	customer, err := r.Customer.parse()
	if err != nil {
		return err
	}
	r.parsedRequest, r.parsedCustomer = req, customer
	return nil
}

// ParsedRequest returns the validated transaction.
func (r *EvaluateRequest) ParsedRequest() *evaluation.TransactionRequest {
	return r.parsedRequest
}

// ParsedCustomer returns the validated customer profile.
func (r *EvaluateRequest) ParsedCustomer() *evaluation.CustomerProfile {
	return r.parsedCustomer
}

// BatchEvaluateRequest is the HTTP request body for POST /transactions/evaluate/batch.
type BatchEvaluateRequest struct {
	Items []EvaluateRequest `json:"items"`
}

// Validate checks batch bounds and every item. The first invalid item fails
// the request, naming its index.
func (r *BatchEvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "items must not be empty")
	}
	if len(r.Items) > evaluation.MaxBatchSize {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("items must contain at most %d entries", evaluation.MaxBatchSize))
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("items[%d]: %s", i, err.Error()))
		}
	}
	return nil
}

// BatchItems converts validated items into service input.
func (r *BatchEvaluateRequest) BatchItems() []evaluation.BatchItem {
	items := make([]evaluation.BatchItem, len(r.Items))
	for i := range r.Items {
		items[i] = evaluation.BatchItem{
			Request:  r.Items[i].ParsedRequest(),
			Customer: r.Items[i].ParsedCustomer(),
		}
	}
	return items
}

func (p TransactionPayload) parse() (*evaluation.TransactionRequest, error) {
	if err := checkMagnitude("amount", p.Amount); err != nil {
		return nil, err
	}
	txType, err := evaluation.ParseTransactionType(p.TransactionType)
	if err != nil {
		return nil, err
	}
	channel, err := evaluation.ParseChannel(p.Channel)
	if err != nil {
		return nil, err
	}

	location := pstrings.NormalizeSpace(p.Location)
	if len(location) > maxLocationLen {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("location must be at most %d characters", maxLocationLen))
	}

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !isCurrencyCode(currency) {
		return nil, dErrors.New(dErrors.CodeValidation, "currency must be a 3-letter ISO 4217 code")
	}

	req := &evaluation.TransactionRequest{
		Amount:          p.Amount,
		TransactionType: txType,
		Channel:         channel,
		Location:        location,
		Currency:        currency,
	}
	if p.Timestamp != nil {
		req.Timestamp = p.Timestamp.UTC()
	}
	return req, nil
}

func (p CustomerPayload) parse() (*evaluation.CustomerProfile, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "customer.id is required")
	}
	if len(id) > maxCustomerIDLen {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("customer.id must be at most %d characters", maxCustomerIDLen))
	}

	accountType, err := evaluation.ParseAccountType(p.AccountType)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"daily_limit", p.DailyLimit},
		{"overdraft_limit", p.OverdraftLimit},
		{"average_transaction", p.AverageTransaction},
		{"loyalty_score", p.LoyaltyScore},
	} {
		if f.value.IsNegative() {
			return nil, dErrors.New(dErrors.CodeValidation, "customer."+f.name+" must not be negative")
		}
		if err := checkMagnitude("customer."+f.name, f.value); err != nil {
			return nil, err
		}
	}
	if p.MonthlyTransactionCount < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "customer.monthly_transaction_count must not be negative")
	}

	travel := pstrings.DedupeFold(p.FrequentTravelLocations)
	if len(travel) > maxTravelLocations {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("customer.frequent_travel_locations must contain at most %d entries", maxTravelLocations))
	}

	return &evaluation.CustomerProfile{
		ID:                      id,
		AccountType:             accountType,
		DailyLimit:              p.DailyLimit,
		HasOverdraftProtection:  p.HasOverdraftProtection,
		OverdraftLimit:          p.OverdraftLimit,
		AverageTransaction:      p.AverageTransaction,
		HomeLocation:            pstrings.NormalizeSpace(p.HomeLocation),
		LastLoginLocation:       pstrings.NormalizeSpace(p.LastLoginLocation),
		MonthlyTransactionCount: p.MonthlyTransactionCount,
		LoyaltyScore:            p.LoyaltyScore,
		FrequentTravelLocations: travel,
	}, nil
}

// checkMagnitude bounds a decimal before any arithmetic touches it. Exponent
// notation lets a few bytes of JSON describe a number with millions of digits.
func checkMagnitude(field string, v decimal.Decimal) error {
	exp := int(v.Exponent())
	if exp < -maxFractionDigits {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must have at most %d decimal places", field, maxFractionDigits))
	}
	if exp > maxIntegerDigits || v.NumDigits()+exp > maxIntegerDigits {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must have at most %d integer digits", field, maxIntegerDigits))
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
