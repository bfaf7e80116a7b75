package service

import (
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// StackedValueAddedTaxes applies all taxes to the same taxless base.
//
// For a taxful price the taxless part is (taxful - fixed amounts) / (1 + rates).
// For a taxless price the taxful part is taxless plus every line tax.
func StackedValueAddedTaxes(price money.Price, taxes []taxdomain.Tax) (taxdomain.TaxedPrice, error) {
	amount := price.Amount()
	if len(taxes) == 0 {
		return taxdomain.NewTaxedPrice(money.TaxfulFromMoney(amount), money.TaxlessFromMoney(amount), nil)
	}

	taxless := amount
	if price.IncludesTax() {
		rates := decimal.Zero
		fixed := amount.Zero()
		for _, tax := range taxes {
			f, ok, err := tax.FixedAmount()
			if err != nil {
				return taxdomain.TaxedPrice{}, err
			}
			if ok {
				if fixed, err = fixed.Add(f); err != nil {
					return taxdomain.TaxedPrice{}, err
				}
				continue
			}
			rates = rates.Add(tax.EffectiveRate())
		}
		base, err := amount.Sub(fixed)
		if err != nil {
			return taxdomain.TaxedPrice{}, err
		}
		if taxless, err = base.Div(decimal.NewFromInt(1).Add(rates)); err != nil {
			return taxdomain.TaxedPrice{}, err
		}
	}

	lineTaxes := make([]taxdomain.LineTax, 0, len(taxes))
	for _, tax := range taxes {
		lt, err := taxdomain.LineTaxFromTax(tax, taxless)
		if err != nil {
			return taxdomain.TaxedPrice{}, err
		}
		lineTaxes = append(lineTaxes, lt)
	}

	taxful := amount
	if !price.IncludesTax() {
		total, err := taxdomain.SumLineTaxes(amount.Zero(), lineTaxes)
		if err != nil {
			return taxdomain.TaxedPrice{}, err
		}
		if taxful, err = taxless.Add(total); err != nil {
			return taxdomain.TaxedPrice{}, err
		}
	}

	return taxdomain.NewTaxedPrice(money.TaxfulFromMoney(taxful), money.TaxlessFromMoney(taxless), lineTaxes)
}
