package ordersource

import "errors"

var (
	ErrNoTaxModule       = errors.New("tax_module_required")
	ErrInvalidLineType   = errors.New("invalid_line_type")
	ErrDuplicateLineID   = errors.New("duplicate_line_id")
	ErrUnknownParentLine = errors.New("unknown_parent_line")
)
