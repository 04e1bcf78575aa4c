package evaluation

import (
	"time"

	"txguard/internal/evaluation/reference"
	dErrors "txguard/pkg/domain-errors"
)

// Precondition messages returned as CodeInvalidArgument errors.
const (
	ErrMsgRequestRequired  = "request is required"
	ErrMsgCustomerRequired = "customer is required"
	ErrMsgAmountPositive   = "Transaction amount must be positive."
)

// Clock returns the current time. Injected so tests can pin "now".
type Clock func() time.Time

// ReferenceGenerator hands out reference numbers. Uniqueness and format are
// the generator's concern; the engine treats the value as opaque.
type ReferenceGenerator interface {
	Generate() string
}

// Engine prices and risk-annotates transactions. It holds only immutable
// configuration, so one Engine may serve any number of concurrent calls
// provided its Clock and ReferenceGenerator are concurrency-safe.
type Engine struct {
	policy Policy
	clock  Clock
	refs   ReferenceGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the UTC wall clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithReferenceGenerator overrides the UUID reference generator.
func WithReferenceGenerator(g ReferenceGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.refs = g
		}
	}
}

// NewEngine validates the policy and builds an engine.
func NewEngine(policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		policy: policy.clone(),
		clock:  func() time.Time { return time.Now().UTC() },
		refs:   reference.NewUUID(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Policy returns a copy of the engine's rule table.
func (e *Engine) Policy() Policy {
	return e.policy.clone()
}

// Evaluate validates the inputs, runs the rule chain and assembles the result.
//
// Pipeline: Validate -> RiskSignals -> FeeOrDiscount (first match) -> Round -> Assemble.
// Only precondition violations fail; once validation passes the evaluation is total.
func (e *Engine) Evaluate(req *TransactionRequest, customer *CustomerProfile) (*TransactionResult, error) {
	if err := validate(req, customer); err != nil {
		return nil, err
	}

	in := ruleInput{
		req:      req,
		customer: customer,
		policy:   &e.policy,
		now:      e.clock(),
	}
	out := evaluateRules(in)

	return NewTransactionResult(
		out.amount,
		out.review,
		out.messages,
		out.appliedRules,
		e.refs.Generate(),
		in.now,
	), nil
}

// validate checks preconditions in order and stops at the first violation.
func validate(req *TransactionRequest, customer *CustomerProfile) error {
	if req == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, ErrMsgRequestRequired)
	}
	if customer == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, ErrMsgCustomerRequired)
	}
	if !req.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidArgument, ErrMsgAmountPositive)
	}
	return nil
}
