package domain

import "errors"

var (
	ErrInvalidTaxCode         = errors.New("invalid_tax_code")
	ErrInvalidTaxName         = errors.New("invalid_tax_name")
	ErrInvalidTaxRate         = errors.New("invalid_tax_rate")
	ErrInvalidTaxAmount       = errors.New("invalid_tax_amount")
	ErrInvalidIdentifier      = errors.New("invalid_identifier")
	ErrMissingTax             = errors.New("missing_tax")
	ErrMissingTaxClass        = errors.New("missing_tax_class")
	ErrTaxedPriceInconsistent = errors.New("taxed_price_inconsistent")
	ErrUnknownTaxModule       = errors.New("unknown_tax_module")
)
