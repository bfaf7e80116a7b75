package ordersource

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/pricing"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// Options configure a new Source.
type Options struct {
	Currency         string
	PricesIncludeTax bool
	Customer         *taxdomain.Customer
	ShippingAddress  *taxdomain.Location
	BillingAddress   *taxdomain.Location

	TaxModule taxdomain.TaxModule
	// CalculateTaxesAutomatically makes FinalLines calculate missing taxes.
	CalculateTaxesAutomatically bool
}

// Source is an order or cart under construction. It is not safe for
// concurrent use.
type Source struct {
	zero            money.Price
	customer        *taxdomain.Customer
	shippingAddress *taxdomain.Location
	billingAddress  *taxdomain.Location
	taxModule       taxdomain.TaxModule
	autoCalculate   bool
	lines           []*Line
	taxesCalculated bool
}

func New(opts Options) (*Source, error) {
	zero, err := money.PriceFromData(decimal.Zero, opts.Currency, opts.PricesIncludeTax)
	if err != nil {
		return nil, err
	}
	return &Source{
		zero:            zero,
		customer:        opts.Customer,
		shippingAddress: opts.ShippingAddress,
		billingAddress:  opts.BillingAddress,
		taxModule:       opts.TaxModule,
		autoCalculate:   opts.CalculateTaxesAutomatically,
	}, nil
}

func (s *Source) Currency() string                     { return s.zero.Currency() }
func (s *Source) PricesIncludeTax() bool               { return s.zero.IncludesTax() }
func (s *Source) Customer() *taxdomain.Customer        { return s.customer }
func (s *Source) ShippingAddress() *taxdomain.Location { return s.shippingAddress }
func (s *Source) BillingAddress() *taxdomain.Location  { return s.billingAddress }

// SetCustomer changes the customer and forgets calculated taxes.
func (s *Source) SetCustomer(customer *taxdomain.Customer) {
	s.customer = customer
	s.uncacheTaxes()
}

func (s *Source) SetShippingAddress(location *taxdomain.Location) {
	s.shippingAddress = location
	s.uncacheTaxes()
}

func (s *Source) SetBillingAddress(location *taxdomain.Location) {
	s.billingAddress = location
	s.uncacheTaxes()
}

// CreatePrice returns value as a price in the unit of the source.
func (s *Source) CreatePrice(value decimal.Decimal) money.Price {
	return s.zero.New(value)
}

// AddLine validates params against the source unit and appends the line.
func (s *Source) AddLine(p LineParams) (*Line, error) {
	lineType := p.Type
	if lineType == "" {
		lineType = LineTypeProduct
	}
	if !lineType.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLineType, p.Type)
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = ulid.Make().String()
	}
	parentID := strings.TrimSpace(p.ParentLineID)
	if s.findLine(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLineID, id)
	}
	if parentID != "" && s.findLine(parentID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParentLine, parentID)
	}

	quantity := decimal.NewFromInt(1)
	if p.Quantity.Valid {
		quantity = p.Quantity.Decimal
	}
	unitPrice := p.BaseUnitPrice
	if unitPrice.Currency() == "" {
		unitPrice = s.zero
	}
	discount := p.DiscountAmount
	if discount.Currency() == "" {
		discount = s.zero
	}
	if _, err := s.zero.Add(unitPrice); err != nil {
		return nil, err
	}

	price := pricing.LinePrice{Quantity: quantity, UnitPrice: unitPrice, TotalDiscount: discount}
	if err := price.Validate(); err != nil {
		return nil, err
	}

	line := &Line{
		id:       id,
		parentID: parentID,
		lineType: lineType,
		text:     strings.TrimSpace(p.Text),
		price:    price,
		taxClass: p.TaxClass,
	}
	s.lines = append(s.lines, line)
	s.uncacheTaxes()
	return line, nil
}

func (s *Source) findLine(id string) *Line {
	for _, line := range s.lines {
		if line.id == id {
			return line
		}
	}
	return nil
}

// Lines returns the lines in insertion order.
func (s *Source) Lines() []*Line {
	return append([]*Line(nil), s.lines...)
}

func (s *Source) TaxesCalculated() bool { return s.taxesCalculated }

// CalculateTaxes asks the tax module to replace the taxes of every line.
func (s *Source) CalculateTaxes(ctx context.Context) error {
	if s.taxModule == nil {
		return ErrNoTaxModule
	}
	lines := make([]taxdomain.Line, 0, len(s.lines))
	for _, line := range s.lines {
		lines = append(lines, line)
	}
	if err := s.taxModule.AddTaxes(ctx, s, lines); err != nil {
		return err
	}
	s.taxesCalculated = true
	return nil
}

// FinalLines returns the lines of the source. With withTaxes set and
// automatic calculation enabled, missing taxes are calculated first.
func (s *Source) FinalLines(ctx context.Context, withTaxes bool) ([]*Line, error) {
	if withTaxes && !s.taxesCalculated && s.autoCalculate {
		if err := s.CalculateTaxes(ctx); err != nil {
			return nil, err
		}
	}
	return s.Lines(), nil
}

func (s *Source) uncacheTaxes() {
	if !s.taxesCalculated {
		return
	}
	s.taxesCalculated = false
	for _, line := range s.lines {
		line.clearTaxes()
	}
}

// TotalPrice sums the native line totals. It needs no taxes.
func (s *Source) TotalPrice(ctx context.Context) (money.Price, error) {
	lines, err := s.FinalLines(ctx, false)
	if err != nil {
		return money.Price{}, err
	}
	return s.sum(lines, (*Line).TotalPrice)
}

func (s *Source) TaxfulTotalPrice(ctx context.Context) (money.Price, error) {
	lines, err := s.FinalLines(ctx, true)
	if err != nil {
		return money.Price{}, err
	}
	return s.sumAs(lines, true, (*Line).TaxfulPrice)
}

func (s *Source) TaxlessTotalPrice(ctx context.Context) (money.Price, error) {
	lines, err := s.FinalLines(ctx, true)
	if err != nil {
		return money.Price{}, err
	}
	return s.sumAs(lines, false, (*Line).TaxlessPrice)
}

// TotalDiscount sums the discount amounts of all lines.
func (s *Source) TotalDiscount(ctx context.Context) (money.Price, error) {
	lines, err := s.FinalLines(ctx, false)
	if err != nil {
		return money.Price{}, err
	}
	return s.sum(lines, func(l *Line) (money.Price, error) { return l.DiscountAmount(), nil })
}

// TaxSummary folds the taxes of the final lines by tax. Lines without taxes
// add their taxless price to the untaxed line.
func (s *Source) TaxSummary(ctx context.Context) (taxdomain.TaxSummary, error) {
	lines, err := s.FinalLines(ctx, true)
	if err != nil {
		return nil, err
	}
	var all []taxdomain.LineTax
	untaxed := s.zero.Amount()
	for _, line := range lines {
		if !line.TaxesKnown() {
			return nil, pricing.ErrTaxesNotCalculated
		}
		taxes := line.Taxes()
		if len(taxes) > 0 {
			all = append(all, taxes...)
			continue
		}
		taxless, err := line.TaxlessPrice()
		if err != nil {
			return nil, err
		}
		if untaxed, err = untaxed.Add(taxless.Amount()); err != nil {
			return nil, err
		}
	}
	return taxdomain.SummaryFromLineTaxes(all, untaxed)
}

func (s *Source) sum(lines []*Line, price func(*Line) (money.Price, error)) (money.Price, error) {
	total := s.zero
	for _, line := range lines {
		p, err := price(line)
		if err != nil {
			return money.Price{}, err
		}
		if total, err = total.Add(p); err != nil {
			return money.Price{}, err
		}
	}
	return total, nil
}

func (s *Source) sumAs(lines []*Line, includesTax bool, price func(*Line) (money.Price, error)) (money.Price, error) {
	total := money.TaxlessFromMoney(s.zero.Amount())
	if includesTax {
		total = money.TaxfulFromMoney(s.zero.Amount())
	}
	for _, line := range lines {
		p, err := price(line)
		if err != nil {
			return money.Price{}, err
		}
		if total, err = total.Add(p); err != nil {
			return money.Price{}, err
		}
	}
	return total, nil
}
