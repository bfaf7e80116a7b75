package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxengine/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// Resolver picks the tax rule for a price and computes its taxes.
type Resolver struct {
	rules        taxdomain.RuleRepository
	exemptGroups []string
}

func NewResolver(rules taxdomain.RuleRepository, exemptGroups []string) *Resolver {
	return &Resolver{rules: rules, exemptGroups: exemptGroups}
}

// CalculateTaxes returns the taxed price of price under taxClass.
//
// Exempt customers pay no tax. Otherwise the first location-matching rule,
// in descending priority with the lowest ID first on ties, supplies the tax.
// Rules are never stacked.
func (r *Resolver) CalculateTaxes(ctx context.Context, tc taxdomain.TaxingContext, price money.Price, taxClass *taxdomain.TaxClass) (taxdomain.TaxedPrice, error) {
	group := tc.CustomerTaxGroup()
	if group.IsTaxExempt(r.exemptGroups...) {
		return StackedValueAddedTaxes(price, nil)
	}
	if taxClass == nil {
		return taxdomain.TaxedPrice{}, taxdomain.ErrMissingTaxClass
	}

	rules, err := r.rules.FindRules(ctx, taxClass.ID, group)
	if err != nil {
		return taxdomain.TaxedPrice{}, fmt.Errorf("%w: %w", metrics.ErrRepository, err)
	}

	var taxes []taxdomain.Tax
	for _, rule := range rules {
		if rule.Matches(tc) {
			taxes = []taxdomain.Tax{rule.Tax}
			break
		}
	}
	return StackedValueAddedTaxes(price, taxes)
}

type snapshotKey struct {
	taxClassID snowflake.ID
	groupID    snowflake.ID
	anonymous  bool
}

// ruleSnapshot memoizes rule lookups so that one calculation sees a single
// view of the rule table.
type ruleSnapshot struct {
	next    taxdomain.RuleRepository
	metrics *metrics.TaxMetrics
	rules   map[snapshotKey][]taxdomain.TaxRule
}

func newRuleSnapshot(next taxdomain.RuleRepository, m *metrics.TaxMetrics) *ruleSnapshot {
	return &ruleSnapshot{next: next, metrics: m, rules: map[snapshotKey][]taxdomain.TaxRule{}}
}

func (s *ruleSnapshot) FindRules(ctx context.Context, taxClassID snowflake.ID, group *taxdomain.CustomerTaxGroup) ([]taxdomain.TaxRule, error) {
	key := snapshotKey{taxClassID: taxClassID, anonymous: group == nil}
	if group != nil {
		key.groupID = group.ID
	}
	if rules, ok := s.rules[key]; ok {
		s.metrics.IncRuleLookup(metrics.RuleLookupHit)
		return rules, nil
	}
	s.metrics.IncRuleLookup(metrics.RuleLookupMiss)
	rules, err := s.next.FindRules(ctx, taxClassID, group)
	if err != nil {
		return nil, err
	}
	s.rules[key] = rules
	return rules, nil
}
