package service

import (
	"context"

	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
)

const NoTaxModuleIdentifier = "no_tax"

// NoTaxModule leaves every line untaxed.
type NoTaxModule struct{}

func NewNoTaxModule() *NoTaxModule { return &NoTaxModule{} }

func (NoTaxModule) Identifier() string { return NoTaxModuleIdentifier }

func (NoTaxModule) Name() string { return "No Taxation" }

func (NoTaxModule) ContextFromRequest(ctx context.Context) taxdomain.TaxingContext {
	customer, _ := taxdomain.CustomerFromContext(ctx)
	return taxdomain.ContextFromCustomer(customer)
}

func (NoTaxModule) ContextFromSource(source taxdomain.Source, overrides *taxdomain.ContextOverrides) taxdomain.TaxingContext {
	return taxdomain.ContextFromSource(source, overrides)
}

func (NoTaxModule) AddTaxes(_ context.Context, _ taxdomain.Source, lines []taxdomain.Line) error {
	for _, line := range lines {
		if line.ParentLineID() != "" {
			continue
		}
		line.SetTaxes([]taxdomain.LineTax{})
	}
	return nil
}
