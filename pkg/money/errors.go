package money

import (
	"errors"
	"fmt"
)

var (
	ErrCurrencyRequired     = errors.New("currency_required")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrUnitMismatch         = errors.New("unit_mismatch")
	ErrCurrencyMismatch     = errors.New("currency_mismatch")
	ErrTaxInclusionMismatch = errors.New("tax_inclusion_mismatch")
	ErrDivisionByZero       = errors.New("division_by_zero")
)

// UnitMismatchError is returned when two values with different units are
// combined or compared. It matches ErrUnitMismatch and the specific cause
// with errors.Is. Left and Right hold the units, LeftOperand and
// RightOperand the values themselves.
type UnitMismatchError struct {
	Op           string
	Left         string
	Right        string
	LeftOperand  fmt.Stringer
	RightOperand fmt.Stringer
	cause        error
}

func newUnitMismatch(op string, left, right unitValue, cause error) *UnitMismatchError {
	return &UnitMismatchError{
		Op:           op,
		Left:         left.unitString(),
		Right:        right.unitString(),
		LeftOperand:  left,
		RightOperand: right,
		cause:        cause,
	}
}

type unitValue interface {
	fmt.Stringer
	unitString() string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("%s: cannot %s %s with %s", e.cause, e.Op, e.LeftOperand, e.RightOperand)
}

func (e *UnitMismatchError) Unwrap() []error {
	return []error{ErrUnitMismatch, e.cause}
}
