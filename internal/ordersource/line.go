package ordersource

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/pricing"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
)

type LineType string

const (
	LineTypeProduct  LineType = "product"
	LineTypeShipping LineType = "shipping"
	LineTypePayment  LineType = "payment"
	LineTypeDiscount LineType = "discount"
	LineTypeOther    LineType = "other"
)

func (t LineType) valid() bool {
	switch t {
	case LineTypeProduct, LineTypeShipping, LineTypePayment, LineTypeDiscount, LineTypeOther:
		return true
	}
	return false
}

// LineParams describes a line to add to a Source. Zero DiscountAmount means
// no discount; an unset Quantity defaults to one.
type LineParams struct {
	ID             string
	Type           LineType
	ParentLineID   string
	Text           string
	Quantity       decimal.NullDecimal
	BaseUnitPrice  money.Price
	DiscountAmount money.Price
	TaxClass       *taxdomain.TaxClass
}

// Line is one line of an order source.
type Line struct {
	id       string
	parentID string
	lineType LineType
	text     string
	price    pricing.LinePrice
	taxClass *taxdomain.TaxClass

	taxes    []taxdomain.LineTax
	taxesSet bool
}

func (l *Line) LineID() string       { return l.id }
func (l *Line) ParentLineID() string { return l.parentID }
func (l *Line) Type() LineType       { return l.lineType }
func (l *Line) Text() string         { return l.text }

func (l *Line) Quantity() decimal.Decimal { return l.price.Quantity }

func (l *Line) BaseUnitPrice() money.Price { return l.price.UnitPrice }

func (l *Line) DiscountAmount() money.Price { return l.price.TotalDiscount }

func (l *Line) TaxClass() *taxdomain.TaxClass { return l.taxClass }

// TotalPrice is base unit price times quantity minus the discount.
func (l *Line) TotalPrice() (money.Price, error) { return l.price.TotalPrice() }

func (l *Line) SetTaxes(taxes []taxdomain.LineTax) {
	l.taxes = append([]taxdomain.LineTax(nil), taxes...)
	l.taxesSet = true
}

// Taxes returns a copy of the line taxes.
func (l *Line) Taxes() []taxdomain.LineTax {
	return append([]taxdomain.LineTax(nil), l.taxes...)
}

// TaxesKnown reports whether the taxes of the line have been calculated.
// Child lines are never taxed on their own and always count as known.
func (l *Line) TaxesKnown() bool {
	return l.taxesSet || l.parentID != ""
}

func (l *Line) clearTaxes() {
	l.taxes = nil
	l.taxesSet = false
}

// Prices returns the price decomposition of the line. The tax amount is
// filled in once taxes are known.
func (l *Line) Prices() (pricing.LinePrice, error) {
	out := l.price
	if !l.TaxesKnown() {
		return out, nil
	}
	total, err := taxdomain.SumLineTaxes(l.price.UnitPrice.Amount().Zero(), l.taxes)
	if err != nil {
		return pricing.LinePrice{}, err
	}
	out.TotalTaxAmount = &total
	return out, nil
}

func (l *Line) TaxfulPrice() (money.Price, error) {
	prices, err := l.Prices()
	if err != nil {
		return money.Price{}, err
	}
	return prices.TaxfulTotalPrice()
}

func (l *Line) TaxlessPrice() (money.Price, error) {
	prices, err := l.Prices()
	if err != nil {
		return money.Price{}, err
	}
	return prices.TaxlessTotalPrice()
}

// TaxAmount is the sum of the line taxes.
func (l *Line) TaxAmount() (money.Money, error) {
	prices, err := l.Prices()
	if err != nil {
		return money.Money{}, err
	}
	if prices.TotalTaxAmount == nil {
		return money.Money{}, pricing.ErrTaxesNotCalculated
	}
	return *prices.TotalTaxAmount, nil
}
