package domain

import (
	"github.com/smallbiznis/taxengine/pkg/money"
)

// Source is the order or cart being taxed.
type Source interface {
	Currency() string
	PricesIncludeTax() bool
	Customer() *Customer
	ShippingAddress() *Location
	BillingAddress() *Location
}

// Line is one line of a Source. Lines with a parent are children of another
// line (bundled products) and are not taxed on their own.
type Line interface {
	LineID() string
	ParentLineID() string
	// TaxClass is nil for lines without an inherent classification, such
	// as blanket discounts.
	TaxClass() *TaxClass
	TotalPrice() (money.Price, error)
	SetTaxes(taxes []LineTax)
}
