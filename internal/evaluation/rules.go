package evaluation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pstrings "txguard/pkg/platform/strings"
)

// Rule names reported in TransactionResult.AppliedRules and metrics labels.
const (
	RuleInternationalFee      = "international_fee"
	RulePremiumMobileDiscount = "premium_mobile_discount"
	RuleDailyLimit            = "daily_limit"
	RuleOverdraftCovered      = "overdraft_covered"
	RuleLocationMismatch      = "location_mismatch"
	RuleLoginMismatch         = "login_mismatch"
	RuleLargeAmount           = "large_amount"
	RuleVelocity              = "velocity"
	RuleFutureTimestamp       = "future_timestamp"
	RuleStaleTimestamp        = "stale_timestamp"
)

// Messages appended by the rules.
const (
	MsgPremiumMobileDiscount = "Premium mobile discount applied."
	MsgOverdraftCovered      = "Daily limit exceeded; covered by overdraft protection."
	MsgDailyLimitExceeded    = "Transaction exceeds daily limit."
	MsgLocationMismatch      = "Transaction location differs from home location."
	MsgLoginMismatch         = "Transaction location does not match last login location."
	MsgLargeAmount           = "Transaction amount is unusually large for this customer."
	MsgHighVelocity          = "High monthly transaction velocity."
	MsgFutureTimestamp       = "Transaction timestamp is in the future."
	MsgStaleTimestamp        = "Transaction timestamp is stale."
)

const centPlaces = 2

// AdjustmentKind selects how an Adjustment combines with the running amount.
type AdjustmentKind int

const (
	AdjustAdd AdjustmentKind = iota
	AdjustMultiply
)

// Adjustment is the monetary effect of a pricing rule.
type Adjustment struct {
	Kind  AdjustmentKind
	Value decimal.Decimal
}

// Apply returns amount after the adjustment, unrounded.
func (a Adjustment) Apply(amount decimal.Decimal) decimal.Decimal {
	if a.Kind == AdjustMultiply {
		return amount.Mul(a.Value)
	}
	return amount.Add(a.Value)
}

// ruleInput is everything a rule may read. Rules never write through it.
type ruleInput struct {
	req      *TransactionRequest
	customer *CustomerProfile
	policy   *Policy
	now      time.Time
}

// pricingRule is one predicate/effect pair of the fee/discount class.
type pricingRule struct {
	name    string
	applies func(in ruleInput) bool
	effect  func(in ruleInput) (Adjustment, string)
}

// signal is the outcome of a risk rule that fired.
type signal struct {
	rule    string
	message string
	review  bool
}

type riskRule func(in ruleInput) (signal, bool)

// pricingRules are mutually exclusive: the first rule whose predicate holds is
// the only one applied. The international fee therefore suppresses the
// premium mobile discount.
var pricingRules = []pricingRule{
	{
		name: RuleInternationalFee,
		applies: func(in ruleInput) bool {
			return in.req.TransactionType == TransactionTypeInternational
		},
		effect: internationalFee,
	},
	{
		name: RulePremiumMobileDiscount,
		applies: func(in ruleInput) bool {
			return in.customer.AccountType == AccountTypePremium && in.req.Channel == ChannelMobileApp
		},
		effect: premiumMobileDiscount,
	},
}

// riskRules run in this order, each independently.
var riskRules = []riskRule{
	checkDailyLimit,
	checkLocationMismatch,
	checkLoginMismatch,
	checkLargeAmount,
	checkVelocity,
	checkTimestamp,
}

// outcome is the unrounded product of the rule chain.
type outcome struct {
	amount       decimal.Decimal
	review       bool
	messages     []string
	appliedRules []string
}

// evaluateRules runs risk signals, then the first matching pricing rule.
// This is pure domain logic - no I/O, no side effects, no rounding.
func evaluateRules(in ruleInput) outcome {
	out := outcome{amount: in.req.Amount}

	for _, rule := range riskRules {
		sig, fired := rule(in)
		if !fired {
			continue
		}
		out.appliedRules = append(out.appliedRules, sig.rule)
		out.messages = append(out.messages, sig.message)
		out.review = out.review || sig.review
	}

	for _, rule := range pricingRules {
		if !rule.applies(in) {
			continue
		}
		adj, msg := rule.effect(in)
		out.amount = adj.Apply(out.amount)
		out.appliedRules = append(out.appliedRules, rule.name)
		if msg != "" {
			out.messages = append(out.messages, msg)
		}
		break
	}

	return out
}

// internationalFee charges amount * fx rate * risk factor plus the flat network fee.
func internationalFee(in ruleInput) (Adjustment, string) {
	factor := riskFactor(in.policy, in.customer, in.req.Location)
	fee := in.req.Amount.Mul(in.policy.FXFeeRate).Mul(factor).Add(in.policy.NetworkFee)

	msg := "International transaction fee applied: " + fee.StringFixed(centPlaces)
	if cur := strings.TrimSpace(in.req.Currency); cur != "" {
		msg += " " + strings.ToUpper(cur)
	}
	return Adjustment{Kind: AdjustAdd, Value: fee}, msg + "."
}

func premiumMobileDiscount(in ruleInput) (Adjustment, string) {
	keep := decimal.NewFromInt(1).Sub(in.policy.MobileDiscountRate)
	return Adjustment{Kind: AdjustMultiply, Value: keep}, MsgPremiumMobileDiscount
}

// riskFactor scales the FX fee. It starts at 1 and is reduced by the
// customer's loyalty tier and by travel to a known destination.
func riskFactor(p *Policy, c *CustomerProfile, location string) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	if f, ok := p.loyaltyFactor(c.LoyaltyScore); ok {
		factor = factor.Mul(f)
	}
	if isFrequentDestination(c, location) {
		factor = factor.Mul(p.FrequentTravelFactor)
	}
	return factor
}

func checkDailyLimit(in ruleInput) (signal, bool) {
	limit := in.customer.DailyLimit
	if !limit.IsPositive() || in.req.Amount.LessThanOrEqual(limit) {
		return signal{}, false
	}
	if in.customer.HasOverdraftProtection && in.req.Amount.LessThanOrEqual(limit.Add(in.customer.OverdraftLimit)) {
		return signal{rule: RuleOverdraftCovered, message: MsgOverdraftCovered}, true
	}
	return signal{rule: RuleDailyLimit, message: MsgDailyLimitExceeded, review: true}, true
}

func checkLocationMismatch(in ruleInput) (signal, bool) {
	loc := in.req.Location
	home := in.customer.HomeLocation
	if isBlank(loc) || isBlank(home) || sameLocation(loc, home) || isFrequentDestination(in.customer, loc) {
		return signal{}, false
	}
	return signal{rule: RuleLocationMismatch, message: MsgLocationMismatch, review: true}, true
}

func checkLoginMismatch(in ruleInput) (signal, bool) {
	loc := in.req.Location
	last := in.customer.LastLoginLocation
	if isBlank(loc) || isBlank(last) || sameLocation(loc, last) || sameLocation(loc, in.customer.HomeLocation) {
		return signal{}, false
	}
	return signal{rule: RuleLoginMismatch, message: MsgLoginMismatch, review: true}, true
}

func checkLargeAmount(in ruleInput) (signal, bool) {
	avg := in.customer.AverageTransaction
	mult := in.policy.LargeAmountMultiplier
	if !avg.IsPositive() || mult.IsZero() || in.req.Amount.LessThanOrEqual(avg.Mul(mult)) {
		return signal{}, false
	}
	return signal{rule: RuleLargeAmount, message: MsgLargeAmount, review: true}, true
}

func checkVelocity(in ruleInput) (signal, bool) {
	threshold := in.policy.VelocityThreshold
	if threshold == 0 || in.customer.MonthlyTransactionCount < threshold {
		return signal{}, false
	}
	return signal{rule: RuleVelocity, message: MsgHighVelocity, review: true}, true
}

func checkTimestamp(in ruleInput) (signal, bool) {
	ts := in.req.Timestamp
	if ts.IsZero() {
		return signal{}, false
	}
	if in.policy.FutureSkew > 0 && ts.After(in.now.Add(in.policy.FutureSkew)) {
		return signal{rule: RuleFutureTimestamp, message: MsgFutureTimestamp, review: true}, true
	}
	if in.policy.StaleAfter > 0 && ts.Before(in.now.Add(-in.policy.StaleAfter)) {
		return signal{rule: RuleStaleTimestamp, message: MsgStaleTimestamp, review: true}, true
	}
	return signal{}, false
}

func isFrequentDestination(c *CustomerProfile, location string) bool {
	if isBlank(location) {
		return false
	}
	for _, l := range c.FrequentTravelLocations {
		if sameLocation(l, location) {
			return true
		}
	}
	return false
}

func sameLocation(a, b string) bool {
	return pstrings.EqualFold(a, b)
}

func isBlank(s string) bool {
	return pstrings.NormalizeSpace(s) == ""
}

// quantize rounds half-up (away from zero) to cents.
func quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(centPlaces)
}
