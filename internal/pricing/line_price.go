package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// LinePrice derives the price figures of a single order line from its
// quantity, unit price, discount and (once known) total tax amount.
//
//	total_price        = unit_price * quantity - total_discount
//	taxful_total_price = taxless_total_price + total_tax_amount
//	tax_rate           = taxful_total_price / taxless_total_price - 1
type LinePrice struct {
	Quantity      decimal.Decimal
	UnitPrice     money.Price
	TotalDiscount money.Price

	// TotalTaxAmount is nil until taxes have been calculated for the line.
	TotalTaxAmount *money.Money
}

// Validate checks that quantity is not negative and that unit price and
// discount share a unit.
func (l LinePrice) Validate() error {
	if l.Quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	_, err := l.TotalPrice()
	return err
}

// TotalPrice is the native line total. It is computed exactly.
func (l LinePrice) TotalPrice() (money.Price, error) {
	return l.UnitPrice.Mul(l.Quantity).Sub(l.TotalDiscount)
}

func (l LinePrice) taxAmount() (money.Money, error) {
	if l.TotalTaxAmount == nil {
		return money.Money{}, ErrTaxesNotCalculated
	}
	return *l.TotalTaxAmount, nil
}

func (l LinePrice) TaxfulTotalPrice() (money.Price, error) {
	total, err := l.TotalPrice()
	if err != nil {
		return money.Price{}, err
	}
	if total.IncludesTax() {
		return total, nil
	}
	tax, err := l.taxAmount()
	if err != nil {
		return money.Price{}, err
	}
	amount, err := total.Amount().Add(tax)
	if err != nil {
		return money.Price{}, err
	}
	return money.TaxfulFromMoney(amount), nil
}

func (l LinePrice) TaxlessTotalPrice() (money.Price, error) {
	total, err := l.TotalPrice()
	if err != nil {
		return money.Price{}, err
	}
	if !total.IncludesTax() {
		return total, nil
	}
	tax, err := l.taxAmount()
	if err != nil {
		return money.Price{}, err
	}
	amount, err := total.Amount().Sub(tax)
	if err != nil {
		return money.Price{}, err
	}
	return money.TaxlessFromMoney(amount), nil
}

// TaxRate returns the effective tax rate of the line. A line with a zero
// taxless total has rate zero.
func (l LinePrice) TaxRate() (decimal.Decimal, error) {
	taxless, err := l.TaxlessTotalPrice()
	if err != nil {
		return decimal.Zero, err
	}
	taxful, err := l.TaxfulTotalPrice()
	if err != nil {
		return decimal.Zero, err
	}
	if taxless.IsZero() {
		return decimal.Zero, nil
	}
	ratio, err := taxful.Amount().Ratio(taxless.Amount())
	if err != nil {
		return decimal.Zero, err
	}
	return ratio.Sub(decimal.NewFromInt(1)), nil
}

func (l LinePrice) TaxPercentage() (decimal.Decimal, error) {
	rate, err := l.TaxRate()
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Mul(decimal.NewFromInt(100)), nil
}

func (l LinePrice) TaxfulUnitPrice() (money.Price, error) {
	return l.toTaxful(l.UnitPrice)
}

func (l LinePrice) TaxlessUnitPrice() (money.Price, error) {
	return l.toTaxless(l.UnitPrice)
}

func (l LinePrice) TaxfulTotalDiscount() (money.Price, error) {
	return l.toTaxful(l.TotalDiscount)
}

func (l LinePrice) TaxlessTotalDiscount() (money.Price, error) {
	return l.toTaxless(l.TotalDiscount)
}

// toTaxful projects p using the line's own tax rate.
func (l LinePrice) toTaxful(p money.Price) (money.Price, error) {
	if p.IncludesTax() {
		return p, nil
	}
	rate, err := l.TaxRate()
	if err != nil {
		return money.Price{}, err
	}
	return money.TaxfulFromMoney(p.Amount().Mul(decimal.NewFromInt(1).Add(rate))), nil
}

func (l LinePrice) toTaxless(p money.Price) (money.Price, error) {
	if !p.IncludesTax() {
		return p, nil
	}
	rate, err := l.TaxRate()
	if err != nil {
		return money.Price{}, err
	}
	amount, err := p.Amount().Div(decimal.NewFromInt(1).Add(rate))
	if err != nil {
		return money.Price{}, err
	}
	return money.TaxlessFromMoney(amount), nil
}
