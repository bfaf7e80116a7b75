package money

import (
	"github.com/shopspring/decimal"
)

// Price is a Money amount that also records whether taxes are included.
// Taxful and taxless prices never mix in arithmetic or comparison.
type Price struct {
	amount      Money
	includesTax bool
}

// NewTaxfulPrice builds a price that includes taxes.
func NewTaxfulPrice(value decimal.Decimal, currency string) (Price, error) {
	return PriceFromData(value, currency, true)
}

// NewTaxlessPrice builds a pretax price.
func NewTaxlessPrice(value decimal.Decimal, currency string) (Price, error) {
	return PriceFromData(value, currency, false)
}

// PriceFromData builds a taxful or taxless price depending on includesTax.
func PriceFromData(value decimal.Decimal, currency string, includesTax bool) (Price, error) {
	m, err := NewMoney(value, currency)
	if err != nil {
		return Price{}, err
	}
	return Price{amount: m, includesTax: includesTax}, nil
}

func TaxfulFromMoney(m Money) Price { return Price{amount: m, includesTax: true} }

func TaxlessFromMoney(m Money) Price { return Price{amount: m, includesTax: false} }

// Amount returns the price as plain Money.
func (p Price) Amount() Money { return p.amount }

func (p Price) Value() decimal.Decimal { return p.amount.value }

func (p Price) Currency() string { return p.amount.currency }

func (p Price) IncludesTax() bool { return p.includesTax }

// New returns a price with the given value and the same unit as p.
func (p Price) New(value decimal.Decimal) Price {
	return Price{amount: p.amount.New(value), includesTax: p.includesTax}
}

func (p Price) Zero() Price { return p.New(decimal.Zero) }

// UnitMatches reports whether p and other share currency and tax inclusion.
func (p Price) UnitMatches(other Price) bool {
	return p.amount.UnitMatches(other.amount) && p.includesTax == other.includesTax
}

func (p Price) check(op string, other Price) error {
	if p.UnitMatches(other) {
		return nil
	}
	cause := ErrCurrencyMismatch
	if p.includesTax != other.includesTax {
		cause = ErrTaxInclusionMismatch
	}
	return newUnitMismatch(op, p, other, cause)
}

func (p Price) unitString() string {
	if p.includesTax {
		return p.amount.unitString() + " taxful"
	}
	return p.amount.unitString() + " taxless"
}

func (p Price) Add(other Price) (Price, error) {
	if err := p.check("add", other); err != nil {
		return Price{}, err
	}
	return p.New(p.amount.value.Add(other.amount.value)), nil
}

func (p Price) Sub(other Price) (Price, error) {
	if err := p.check("subtract", other); err != nil {
		return Price{}, err
	}
	return p.New(p.amount.value.Sub(other.amount.value)), nil
}

func (p Price) Cmp(other Price) (int, error) {
	if err := p.check("compare", other); err != nil {
		return 0, err
	}
	return p.amount.value.Cmp(other.amount.value), nil
}

func (p Price) Mul(factor decimal.Decimal) Price {
	return p.New(p.amount.value.Mul(factor))
}

func (p Price) Div(divisor decimal.Decimal) (Price, error) {
	if divisor.IsZero() {
		return Price{}, ErrDivisionByZero
	}
	return p.New(p.amount.value.Div(divisor)), nil
}

func (p Price) Neg() Price { return p.New(p.amount.value.Neg()) }

func (p Price) IsZero() bool { return p.amount.IsZero() }

func (p Price) IsNegative() bool { return p.amount.IsNegative() }

func (p Price) Round(places int32) Price {
	return p.New(p.amount.value.Round(places))
}

func (p Price) Equal(other Price) bool {
	return p.UnitMatches(other) && p.amount.value.Equal(other.amount.value)
}

func (p Price) String() string {
	return p.amount.value.String() + " " + p.unitString()
}

// SumPrices folds values into zero, which also fixes the expected unit.
func SumPrices(zero Price, values ...Price) (Price, error) {
	total := zero
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return Price{}, err
		}
		total = next
	}
	return total, nil
}
