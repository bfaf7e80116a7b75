package domain

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eur(t *testing.T, v string) money.Money {
	t.Helper()
	m, err := money.ParseMoney(v, "EUR")
	require.NoError(t, err)
	return m
}

func rateTax(code, rate string) Tax {
	r := decimal.RequireFromString(rate)
	return Tax{ID: 1, Code: code, Name: "Tax-" + code, Rate: &r, IsEnabled: true}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"", "FI", true},
		{"", "", true},
		{"FI", "", false},
		{"FI", "fi", true},
		{"fi, se", "SE", true},
		{"FI,SE", "US", false},
		{"US-*", "US-CA", true},
		{"US-C?", "US-CA", true},
		{"US-C?", "US-NY", false},
		{"US-CA", "US-CA", true},
		{"00100-00199", "00150", true},
		{"00100-00199", "00200", false},
		{"00100-00199", "0150", false},
		{"90000-96199,10001", "10001", true},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+"/"+tc.value, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchPattern(tc.pattern, tc.value))
		})
	}
}

func TestTaxRule_Matches(t *testing.T) {
	rule := TaxRule{CountryCodesPattern: "FI", PostalCodesPattern: "00100-00199"}

	assert.True(t, rule.Matches(NewTaxingContext(nil, "", &Location{CountryCode: "FI", PostalCode: "00120"})))
	assert.False(t, rule.Matches(NewTaxingContext(nil, "", &Location{CountryCode: "FI", PostalCode: "33100"})))
	assert.False(t, rule.Matches(NewTaxingContext(nil, "", nil)))
	assert.True(t, TaxRule{}.Matches(NewTaxingContext(nil, "", nil)))
}

func TestCustomerTaxGroup_IsTaxExempt(t *testing.T) {
	var nilGroup *CustomerTaxGroup
	assert.False(t, nilGroup.IsTaxExempt())
	assert.True(t, (&CustomerTaxGroup{Identifier: "tax_exempt"}).IsTaxExempt())
	assert.True(t, (&CustomerTaxGroup{Identifier: "ngo", TaxExempt: true}).IsTaxExempt())
	assert.False(t, (&CustomerTaxGroup{Identifier: "ngo"}).IsTaxExempt())
	assert.True(t, (&CustomerTaxGroup{Identifier: "diplomats"}).IsTaxExempt("tax_exempt", "diplomats"))
}

func TestTax_Validate(t *testing.T) {
	tax := rateTax("A", "0.24")
	require.NoError(t, tax.Validate())

	negative := rateTax("A", "-0.1")
	assert.ErrorIs(t, negative.Validate(), ErrInvalidTaxRate)

	both := rateTax("A", "0.1")
	amount := decimal.NewFromInt(1)
	both.AmountValue = &amount
	assert.ErrorIs(t, both.Validate(), ErrInvalidTaxRate)

	noCurrency := Tax{Code: "F", Name: "Fixed", AmountValue: &amount}
	assert.ErrorIs(t, noCurrency.Validate(), ErrInvalidTaxAmount)

	assert.ErrorIs(t, (&Tax{Name: "x"}).Validate(), ErrInvalidTaxCode)
}

func TestTax_CalculateAmount(t *testing.T) {
	tax := rateTax("A", "0.25")
	amount, err := tax.CalculateAmount(eur(t, "-16"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(eur(t, "-4")))

	fixedValue := decimal.RequireFromString("2.50")
	currency := "EUR"
	fixed := Tax{Code: "F", Name: "Fixed", AmountValue: &fixedValue, AmountCurrency: &currency}
	amount, err = fixed.CalculateAmount(eur(t, "100"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(eur(t, "2.5")))
	assert.True(t, fixed.EffectiveRate().IsZero())

	usd, _ := money.ParseMoney("100", "USD")
	_, err = fixed.CalculateAmount(usd)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestNewTaxedPrice(t *testing.T) {
	lt, err := LineTaxFromTax(rateTax("A", "0.25"), eur(t, "160"))
	require.NoError(t, err)
	assert.Equal(t, "Tax-A", lt.Name)

	taxful := money.TaxfulFromMoney(eur(t, "200"))
	taxless := money.TaxlessFromMoney(eur(t, "160"))

	tp, err := NewTaxedPrice(taxful, taxless, []LineTax{lt})
	require.NoError(t, err)
	amount, err := tp.TaxAmount()
	require.NoError(t, err)
	assert.True(t, amount.Equal(eur(t, "40")))
	assert.True(t, tp.TaxRate().Equal(decimal.RequireFromString("0.25")))

	_, err = NewTaxedPrice(taxful, money.TaxlessFromMoney(eur(t, "150")), []LineTax{lt})
	assert.ErrorIs(t, err, ErrTaxedPriceInconsistent)

	_, err = NewTaxedPrice(taxless, taxful, nil)
	assert.ErrorIs(t, err, ErrTaxedPriceInconsistent)

	// Within tolerance.
	_, err = NewTaxedPrice(money.TaxfulFromMoney(eur(t, "200.000001")), taxless, []LineTax{lt})
	assert.NoError(t, err)

	empty, err := NewTaxedPrice(money.TaxfulFromMoney(eur(t, "0")), money.TaxlessFromMoney(eur(t, "0")), nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Taxes)
	assert.True(t, empty.TaxRate().IsZero())
}

func TestSummaryFromLineTaxes(t *testing.T) {
	b := rateTax("B", "0.20")
	b.ID = 2
	a := rateTax("A", "0.25")

	taxes := []LineTax{
		{TaxID: b.ID, Name: b.Name, Rate: *b.Rate, BaseAmount: eur(t, "20"), Amount: eur(t, "4")},
		{TaxID: a.ID, Name: a.Name, Rate: *a.Rate, BaseAmount: eur(t, "10"), Amount: eur(t, "2.5")},
		{TaxID: a.ID, Name: a.Name, Rate: *a.Rate, BaseAmount: eur(t, "-1"), Amount: eur(t, "-0.25")},
	}

	summary, err := SummaryFromLineTaxes(taxes, eur(t, "0"))
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Tax-B", summary[0].TaxName)
	assert.Equal(t, "Tax-A", summary[1].TaxName)
	assert.True(t, summary[1].BasedOn.Equal(eur(t, "9")))
	assert.True(t, summary[1].TaxAmount.Equal(eur(t, "2.25")))
	assert.True(t, summary[1].Taxful.Equal(eur(t, "11.25")))

	withUntaxed, err := SummaryFromLineTaxes(taxes, eur(t, "5"))
	require.NoError(t, err)
	require.Len(t, withUntaxed, 3)
	assert.Equal(t, UntaxedSummaryName, withUntaxed[2].TaxName)
	assert.True(t, withUntaxed[2].Taxful.Equal(eur(t, "5")))

	sorted := withUntaxed.Sorted()
	assert.Equal(t, "Tax-A", sorted[0].TaxName)
	assert.Equal(t, "Tax-B", sorted[1].TaxName)
	assert.Equal(t, UntaxedSummaryName, sorted[2].TaxName)
	assert.Equal(t, "Tax-B", withUntaxed[0].TaxName)

	line, ok := withUntaxed.Find("Tax-B")
	require.True(t, ok)
	assert.True(t, line.Taxful.Equal(eur(t, "24")))
}

func TestTaxSummaryTotals(t *testing.T) {
	summary := TaxSummary{
		{TaxName: "Tax-A", BasedOn: eur(t, "9"), TaxAmount: eur(t, "2.25"), Taxful: eur(t, "11.25")},
		{TaxName: "Tax-B", BasedOn: eur(t, "18"), TaxAmount: eur(t, "3.6"), Taxful: eur(t, "21.6")},
	}

	basedOn, taxAmount, taxful, err := summary.Totals()
	require.NoError(t, err)
	assert.True(t, basedOn.Equal(eur(t, "27")))
	assert.True(t, taxAmount.Equal(eur(t, "5.85")))
	assert.True(t, taxful.Equal(eur(t, "32.85")))

	basedOn, _, _, err = TaxSummary{}.Totals()
	require.NoError(t, err)
	assert.Empty(t, basedOn.Currency())

	usd, err := money.ParseMoney("1", "USD")
	require.NoError(t, err)
	mixed := append(summary, TaxSummaryLine{TaxName: "Tax-C", BasedOn: usd, TaxAmount: usd.Zero(), Taxful: usd})
	_, _, _, err = mixed.Totals()
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

type stubSource struct {
	customer *Customer
	shipping *Location
	billing  *Location
}

func (s stubSource) Currency() string           { return "EUR" }
func (s stubSource) PricesIncludeTax() bool     { return true }
func (s stubSource) Customer() *Customer        { return s.customer }
func (s stubSource) ShippingAddress() *Location { return s.shipping }
func (s stubSource) BillingAddress() *Location  { return s.billing }

func TestContextFromSource(t *testing.T) {
	group := &CustomerTaxGroup{Identifier: "business"}
	override := &CustomerTaxGroup{Identifier: "override"}
	src := stubSource{
		customer: &Customer{ID: "c1", TaxGroup: group, TaxNumber: "FI123"},
		shipping: &Location{CountryCode: "SE"},
		billing:  &Location{CountryCode: "FI", TaxNumber: "FI999"},
	}

	tc := ContextFromSource(src, nil)
	assert.Equal(t, "business", tc.CustomerTaxGroup().Identifier)
	assert.Equal(t, "FI123", tc.CustomerTaxNumber())
	assert.Equal(t, "SE", tc.CountryCode())

	tc = ContextFromSource(src, &ContextOverrides{
		CustomerTaxGroup:  override,
		CustomerTaxNumber: "X1",
		Location:          &Location{CountryCode: "DE"},
	})
	assert.Equal(t, "override", tc.CustomerTaxGroup().Identifier)
	assert.Equal(t, "X1", tc.CustomerTaxNumber())
	assert.Equal(t, "DE", tc.CountryCode())

	src.shipping = nil
	src.customer.TaxNumber = ""
	tc = ContextFromSource(src, nil)
	assert.Equal(t, "FI", tc.CountryCode())
	assert.Equal(t, "FI999", tc.CustomerTaxNumber())

	anon := ContextFromSource(stubSource{}, nil)
	assert.Nil(t, anon.CustomerTaxGroup())
	assert.True(t, anon.Location().IsZero())
}

func TestTaxingContext_IsImmutable(t *testing.T) {
	group := &CustomerTaxGroup{Identifier: "business"}
	tc := NewTaxingContext(group, "", nil)
	group.Identifier = "changed"
	assert.Equal(t, "business", tc.CustomerTaxGroup().Identifier)

	tc.CustomerTaxGroup().Identifier = "changed"
	assert.Equal(t, "business", tc.CustomerTaxGroup().Identifier)
}

func TestCustomerContext(t *testing.T) {
	_, ok := CustomerFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithCustomer(context.Background(), &Customer{ID: "c1"})
	customer, ok := CustomerFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "c1", customer.ID)

	tc := ContextFromCustomer(customer)
	assert.Nil(t, tc.CustomerTaxGroup())
}
