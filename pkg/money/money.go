package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount tagged with an ISO 4217 currency code.
// Values are immutable; every operation returns a new Money.
type Money struct {
	value    decimal.Decimal
	currency string
}

// NewMoney builds a Money value. The currency is required and is stored
// upper-cased.
func NewMoney(value decimal.Decimal, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{value: value, currency: code}, nil
}

// ParseMoney parses a decimal string such as "12.50".
func ParseMoney(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, currency)
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return "", ErrCurrencyRequired
	}
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

func (m Money) Value() decimal.Decimal { return m.value }

func (m Money) Currency() string { return m.currency }

// New returns a Money with the given value and the same currency as m.
func (m Money) New(value decimal.Decimal) Money {
	return Money{value: value, currency: m.currency}
}

// Zero returns the zero value in m's currency.
func (m Money) Zero() Money {
	return m.New(decimal.Zero)
}

// UnitMatches reports whether m and other share a currency.
func (m Money) UnitMatches(other Money) bool {
	return m.currency == other.currency
}

func (m Money) check(op string, other Money) error {
	if m.UnitMatches(other) {
		return nil
	}
	return newUnitMismatch(op, m, other, ErrCurrencyMismatch)
}

func (m Money) unitString() string {
	if m.currency == "" {
		return "<no currency>"
	}
	return m.currency
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.check("add", other); err != nil {
		return Money{}, err
	}
	return m.New(m.value.Add(other.value)), nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.check("subtract", other); err != nil {
		return Money{}, err
	}
	return m.New(m.value.Sub(other.value)), nil
}

// Cmp compares m with other and returns -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.check("compare", other); err != nil {
		return 0, err
	}
	return m.value.Cmp(other.value), nil
}

// Mul scales m by a unitless factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return m.New(m.value.Mul(factor))
}

// Div divides m by a unitless divisor.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return m.New(m.value.Div(divisor)), nil
}

// Ratio returns m / other as a plain decimal. Both sides must share a currency.
func (m Money) Ratio(other Money) (decimal.Decimal, error) {
	if err := m.check("divide", other); err != nil {
		return decimal.Zero, err
	}
	if other.value.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return m.value.Div(other.value), nil
}

func (m Money) Neg() Money { return m.New(m.value.Neg()) }

func (m Money) Abs() Money { return m.New(m.value.Abs()) }

func (m Money) IsZero() bool { return m.value.IsZero() }

func (m Money) IsNegative() bool { return m.value.IsNegative() }

func (m Money) IsPositive() bool { return m.value.IsPositive() }

// Round rounds half away from zero to the given number of decimal places.
func (m Money) Round(places int32) Money {
	return m.New(m.value.Round(places))
}

// Equal reports whether m and other have the same unit and numeric value.
func (m Money) Equal(other Money) bool {
	return m.UnitMatches(other) && m.value.Equal(other.value)
}

func (m Money) String() string {
	return m.value.String() + " " + m.unitString()
}

// Sum folds values into zero, which also fixes the expected currency.
func Sum(zero Money, values ...Money) (Money, error) {
	total := zero
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}
