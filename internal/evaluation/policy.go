package evaluation

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	dErrors "txguard/pkg/domain-errors"
)

// LoyaltyTier lowers the international fee for customers whose loyalty score
// reaches MinScore.
type LoyaltyTier struct {
	MinScore decimal.Decimal
	Factor   decimal.Decimal
}

// Policy is the rule table: every rate, fee and threshold the rules read.
// A zero threshold disables the rule that reads it.
type Policy struct {
	MobileDiscountRate    decimal.Decimal
	FXFeeRate             decimal.Decimal
	NetworkFee            decimal.Decimal
	LoyaltyTiers          []LoyaltyTier
	FrequentTravelFactor  decimal.Decimal
	LargeAmountMultiplier decimal.Decimal
	VelocityThreshold     int
	FutureSkew            time.Duration
	StaleAfter            time.Duration
}

// DefaultPolicy returns the production rule table.
func DefaultPolicy() Policy {
	return Policy{
		MobileDiscountRate: decimal.RequireFromString("0.001"),
		FXFeeRate:          decimal.RequireFromString("0.005"),
		NetworkFee:         decimal.RequireFromString("0.50"),
		LoyaltyTiers: []LoyaltyTier{
			{MinScore: decimal.NewFromInt(90), Factor: decimal.RequireFromString("0.5")},
			{MinScore: decimal.NewFromInt(75), Factor: decimal.RequireFromString("0.8")},
		},
		FrequentTravelFactor:  decimal.RequireFromString("0.9"),
		LargeAmountMultiplier: decimal.NewFromInt(5),
		VelocityThreshold:     200,
		FutureSkew:            5 * time.Minute,
		StaleAfter:            24 * time.Hour,
	}
}

// Validate rejects tables the rules cannot apply meaningfully.
func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)

	if p.MobileDiscountRate.IsNegative() || p.MobileDiscountRate.GreaterThanOrEqual(one) {
		return policyError("mobile discount rate must be in [0, 1)")
	}
	if p.FXFeeRate.IsNegative() {
		return policyError("fx fee rate must not be negative")
	}
	if p.NetworkFee.IsNegative() {
		return policyError("network fee must not be negative")
	}
	for i, tier := range p.LoyaltyTiers {
		if tier.MinScore.IsNegative() {
			return policyError(fmt.Sprintf("loyalty tier %d: min score must not be negative", i))
		}
		if !inUnitInterval(tier.Factor) {
			return policyError(fmt.Sprintf("loyalty tier %d: factor must be in (0, 1]", i))
		}
	}
	if !inUnitInterval(p.FrequentTravelFactor) {
		return policyError("frequent travel factor must be in (0, 1]")
	}
	if !p.LargeAmountMultiplier.IsZero() && p.LargeAmountMultiplier.LessThan(one) {
		return policyError("large amount multiplier must be 0 (disabled) or at least 1")
	}
	if p.VelocityThreshold < 0 {
		return policyError("velocity threshold must not be negative")
	}
	if p.FutureSkew < 0 || p.StaleAfter < 0 {
		return policyError("timestamp windows must not be negative")
	}
	return nil
}

func (p Policy) clone() Policy {
	p.LoyaltyTiers = slices.Clone(p.LoyaltyTiers)
	return p
}

// loyaltyFactor returns the factor of the highest tier the score reaches.
func (p *Policy) loyaltyFactor(score decimal.Decimal) (decimal.Decimal, bool) {
	var (
		best  LoyaltyTier
		found bool
	)
	for _, tier := range p.LoyaltyTiers {
		if score.LessThan(tier.MinScore) {
			continue
		}
		if !found || tier.MinScore.GreaterThan(best.MinScore) {
			best, found = tier, true
		}
	}
	return best.Factor, found
}

func inUnitInterval(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

func policyError(msg string) error {
	return dErrors.New(dErrors.CodeValidation, "invalid policy: "+msg)
}
