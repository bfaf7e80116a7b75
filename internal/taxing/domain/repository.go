package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type RuleRepository interface {
	// FindRules returns enabled rules with an enabled tax for the tax class,
	// ordered by descending priority and then ascending ID. With a group,
	// only rules that list the group or list no groups at all are returned.
	FindRules(ctx context.Context, taxClassID snowflake.ID, group *CustomerTaxGroup) ([]TaxRule, error)
}

// Repository reads and writes the tax tables.
type Repository interface {
	RuleRepository

	CreateTax(ctx context.Context, tax *Tax) error
	FindTaxByCode(ctx context.Context, code string) (*Tax, error)
	CreateTaxClass(ctx context.Context, class *TaxClass) error
	FindTaxClassByIdentifier(ctx context.Context, identifier string) (*TaxClass, error)
	CreateCustomerTaxGroup(ctx context.Context, group *CustomerTaxGroup) error
	FindCustomerTaxGroupByIdentifier(ctx context.Context, identifier string) (*CustomerTaxGroup, error)
	CreateRule(ctx context.Context, rule *TaxRule) error
	ListRules(ctx context.Context) ([]TaxRule, error)
}
