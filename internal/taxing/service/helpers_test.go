package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = "0.0000001"

type stubSource struct {
	currency    string
	includesTax bool
	customer    *taxdomain.Customer
	shipping    *taxdomain.Location
	billing     *taxdomain.Location
}

func (s stubSource) Currency() string                     { return s.currency }
func (s stubSource) PricesIncludeTax() bool               { return s.includesTax }
func (s stubSource) Customer() *taxdomain.Customer        { return s.customer }
func (s stubSource) ShippingAddress() *taxdomain.Location { return s.shipping }
func (s stubSource) BillingAddress() *taxdomain.Location  { return s.billing }

type stubLine struct {
	id       string
	parent   string
	class    *taxdomain.TaxClass
	price    money.Price
	priceErr error
	taxes    []taxdomain.LineTax
	set      bool
}

func (l *stubLine) LineID() string                   { return l.id }
func (l *stubLine) ParentLineID() string             { return l.parent }
func (l *stubLine) TaxClass() *taxdomain.TaxClass    { return l.class }
func (l *stubLine) TotalPrice() (money.Price, error) { return l.price, l.priceErr }
func (l *stubLine) SetTaxes(taxes []taxdomain.LineTax) {
	l.taxes = taxes
	l.set = true
}

func lines(ls ...*stubLine) []taxdomain.Line {
	out := make([]taxdomain.Line, 0, len(ls))
	for _, l := range ls {
		out = append(out, l)
	}
	return out
}

func taxful(t testing.TB, value string) money.Price {
	t.Helper()
	p, err := money.NewTaxfulPrice(decimal.RequireFromString(value), "EUR")
	require.NoError(t, err)
	return p
}

func taxless(t testing.TB, value string) money.Price {
	t.Helper()
	p, err := money.NewTaxlessPrice(decimal.RequireFromString(value), "EUR")
	require.NoError(t, err)
	return p
}

func rateTax(id int64, code, rate string) taxdomain.Tax {
	r := decimal.RequireFromString(rate)
	return taxdomain.Tax{ID: snowflake.ID(id), Code: code, Name: "Tax-" + code, Rate: &r, IsEnabled: true}
}

func fixedTax(id int64, code, amount, currency string) taxdomain.Tax {
	a := decimal.RequireFromString(amount)
	return taxdomain.Tax{ID: snowflake.ID(id), Code: code, Name: "Tax-" + code, AmountValue: &a, AmountCurrency: &currency, IsEnabled: true}
}

func assertDecimal(t testing.TB, want string, got decimal.Decimal) {
	t.Helper()
	diff := got.Sub(decimal.RequireFromString(want)).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString(eps)), "want %s got %s", want, got)
}

func taxingConfig(mutate func(*config.TaxingConfig)) *config.TaxingConfigHolder {
	cfg := config.DefaultTaxingConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return config.NewStaticTaxingConfigHolder(cfg)
}

// countingRules counts lookups that reach the store.
type countingRules struct {
	next  taxdomain.RuleRepository
	calls int
	err   error
}

func (c *countingRules) FindRules(ctx context.Context, taxClassID snowflake.ID, group *taxdomain.CustomerTaxGroup) ([]taxdomain.TaxRule, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.next == nil {
		return nil, nil
	}
	return c.next.FindRules(ctx, taxClassID, group)
}

var errStoreDown = errors.New("store down")
