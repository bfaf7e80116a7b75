package pricing

import "errors"

var (
	ErrTaxesNotCalculated = errors.New("taxes_not_calculated")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
)
