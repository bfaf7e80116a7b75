package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// TaxedPriceTolerance is the largest accepted difference between taxful and
// taxless plus taxes.
var TaxedPriceTolerance = decimal.RequireFromString("0.00001")

// TaxedPrice is a price with its taxes resolved.
type TaxedPrice struct {
	Taxful  money.Price
	Taxless money.Price
	Taxes   []LineTax
}

func NewTaxedPrice(taxful, taxless money.Price, taxes []LineTax) (TaxedPrice, error) {
	if !taxful.IncludesTax() || taxless.IncludesTax() {
		return TaxedPrice{}, fmt.Errorf("%w: taxful and taxless flags swapped", ErrTaxedPriceInconsistent)
	}
	tp := TaxedPrice{Taxful: taxful, Taxless: taxless, Taxes: taxes}
	if tp.Taxes == nil {
		tp.Taxes = []LineTax{}
	}

	taxAmount, err := tp.TaxAmount()
	if err != nil {
		return TaxedPrice{}, err
	}
	expected, err := taxless.Amount().Add(taxAmount)
	if err != nil {
		return TaxedPrice{}, err
	}
	diff, err := taxful.Amount().Sub(expected)
	if err != nil {
		return TaxedPrice{}, err
	}
	if !diff.Value().Abs().LessThan(TaxedPriceTolerance) {
		return TaxedPrice{}, fmt.Errorf("%w: taxful %s, taxless %s, taxes %s",
			ErrTaxedPriceInconsistent, taxful, taxless, taxAmount)
	}
	return tp, nil
}

// TaxAmount is the sum of all applied taxes.
func (p TaxedPrice) TaxAmount() (money.Money, error) {
	return SumLineTaxes(p.Taxful.Amount().Zero(), p.Taxes)
}

// TaxRate is the effective rate, taxful / taxless - 1. It is zero when the
// taxless amount is zero.
func (p TaxedPrice) TaxRate() decimal.Decimal {
	ratio, err := p.Taxful.Amount().Ratio(p.Taxless.Amount())
	if err != nil {
		return decimal.Zero
	}
	return ratio.Sub(decimal.NewFromInt(1))
}
