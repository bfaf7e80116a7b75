package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// LineTax is one tax applied to one line. Name and rate are copied from the
// Tax at calculation time.
type LineTax struct {
	TaxID      snowflake.ID
	TaxCode    string
	Name       string
	Rate       decimal.Decimal
	BaseAmount money.Money
	Amount     money.Money
}

// LineTaxFromTax calculates the tax of base under tax.
func LineTaxFromTax(tax Tax, base money.Money) (LineTax, error) {
	amount, err := tax.CalculateAmount(base)
	if err != nil {
		return LineTax{}, err
	}
	return LineTax{
		TaxID:      tax.ID,
		TaxCode:    tax.Code,
		Name:       tax.Name,
		Rate:       tax.EffectiveRate(),
		BaseAmount: base,
		Amount:     amount,
	}, nil
}

// SumLineTaxes returns the total tax amount, starting from zero.
func SumLineTaxes(zero money.Money, taxes []LineTax) (money.Money, error) {
	total := zero
	for _, t := range taxes {
		next, err := total.Add(t.Amount)
		if err != nil {
			return money.Money{}, err
		}
		total = next
	}
	return total, nil
}
