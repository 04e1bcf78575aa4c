package evaluation

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dErrors "txguard/pkg/domain-errors"
)

// AccountType is the customer's product tier.
type AccountType string

const (
	AccountTypeStandard AccountType = "STANDARD"
	AccountTypePremium  AccountType = "PREMIUM"
	AccountTypeBusiness AccountType = "BUSINESS"
)

// TransactionType distinguishes domestic from cross-border transactions.
type TransactionType string

const (
	TransactionTypeDomestic      TransactionType = "DOMESTIC"
	TransactionTypeInternational TransactionType = "INTERNATIONAL"
)

// Channel is where the transaction was initiated.
type Channel string

const (
	ChannelBranch    Channel = "BRANCH"
	ChannelMobileApp Channel = "MOBILE_APP"
	ChannelOnline    Channel = "ONLINE"
	ChannelATM       Channel = "ATM"
)

var (
	accountTypes     = []AccountType{AccountTypeStandard, AccountTypePremium, AccountTypeBusiness}
	transactionTypes = []TransactionType{TransactionTypeDomestic, TransactionTypeInternational}
	channels         = []Channel{ChannelBranch, ChannelMobileApp, ChannelOnline, ChannelATM}
)

// ParseAccountType parses an account type name case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	v := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(accountTypes, v) {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported account_type: "+s)
	}
	return v, nil
}

// ParseTransactionType parses a transaction type name case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	v := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(transactionTypes, v) {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported transaction_type: "+s)
	}
	return v, nil
}

// ParseChannel parses a channel name case-insensitively.
func ParseChannel(s string) (Channel, error) {
	v := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(channels, v) {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported channel: "+s)
	}
	return v, nil
}

// CustomerProfile is the caller-owned view of the customer. The engine only
// reads it.
type CustomerProfile struct {
	ID                      string
	AccountType             AccountType
	DailyLimit              decimal.Decimal
	HasOverdraftProtection  bool
	OverdraftLimit          decimal.Decimal
	AverageTransaction      decimal.Decimal
	HomeLocation            string
	LastLoginLocation       string
	MonthlyTransactionCount int
	LoyaltyScore            decimal.Decimal
	FrequentTravelLocations []string
}

// TransactionRequest is a single transaction to evaluate.
type TransactionRequest struct {
	Amount          decimal.Decimal
	TransactionType TransactionType
	Channel         Channel
	Location        string
	Currency        string
	Timestamp       time.Time
}

// TransactionResult is the outcome of one evaluation. It is built once and
// exposes copies only.
type TransactionResult struct {
	processedAmount decimal.Decimal
	requiresReview  bool
	messages        []string
	appliedRules    []string
	referenceNumber string
	evaluatedAt     time.Time
}

// NewTransactionResult assembles a result, quantizing the amount to cents.
func NewTransactionResult(amount decimal.Decimal, requiresReview bool, messages, appliedRules []string, reference string, evaluatedAt time.Time) *TransactionResult {
	if messages == nil {
		messages = []string{}
	}
	if appliedRules == nil {
		appliedRules = []string{}
	}
	return &TransactionResult{
		processedAmount: quantize(amount),
		requiresReview:  requiresReview,
		messages:        slices.Clone(messages),
		appliedRules:    slices.Clone(appliedRules),
		referenceNumber: reference,
		evaluatedAt:     evaluatedAt,
	}
}

// ProcessedAmount is the adjusted amount, rounded half-up to 2 places.
func (r *TransactionResult) ProcessedAmount() decimal.Decimal { return r.processedAmount }

// RequiresReview reports whether a risk rule routed the transaction to manual review.
func (r *TransactionResult) RequiresReview() bool { return r.requiresReview }

// Messages returns the explanations in rule-evaluation order.
func (r *TransactionResult) Messages() []string { return slices.Clone(r.messages) }

// AppliedRules returns the names of the rules that fired, in evaluation order.
func (r *TransactionResult) AppliedRules() []string { return slices.Clone(r.appliedRules) }

func (r *TransactionResult) ReferenceNumber() string { return r.referenceNumber }

func (r *TransactionResult) EvaluatedAt() time.Time { return r.evaluatedAt }
