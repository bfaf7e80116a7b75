package ordersource

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/config"
	"github.com/smallbiznis/taxengine/internal/pricing"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/internal/taxing/service"
	"github.com/smallbiznis/taxengine/internal/taxing/taxingtest"
	"github.com/smallbiznis/taxengine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var tolerance = decimal.RequireFromString("0.0000001")

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func qty(v string) decimal.NullDecimal { return decimal.NewNullDecimal(d(v)) }

func assertClose(t testing.TB, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Sub(d(want)).Abs().LessThan(tolerance), "want %s got %s", want, got)
}

func newTaxModule(t *testing.T, f *taxingtest.Fixtures, mutate func(*config.TaxingConfig)) taxdomain.TaxModule {
	t.Helper()
	cfg := config.DefaultTaxingConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return service.NewDefaultTaxModule(service.DefaultModuleParams{
		Rules:  f.Repo,
		Config: config.NewStaticTaxingConfigHolder(cfg),
		Log:    zaptest.NewLogger(t),
	})
}

func newSource(t *testing.T, module taxdomain.TaxModule, includesTax, auto bool) *Source {
	t.Helper()
	s, err := New(Options{
		Currency:                    "EUR",
		PricesIncludeTax:            includesTax,
		TaxModule:                   module,
		CalculateTaxesAutomatically: auto,
	})
	require.NoError(t, err)
	return s
}

func addLine(t *testing.T, s *Source, lineType LineType, quantity, unit, discount string, class *taxdomain.TaxClass) *Line {
	t.Helper()
	line, err := s.AddLine(LineParams{
		Type:           lineType,
		Quantity:       qty(quantity),
		BaseUnitPrice:  s.CreatePrice(d(unit)),
		DiscountAmount: s.CreatePrice(d(discount)),
		TaxClass:       class,
	})
	require.NoError(t, err)
	return line
}

func summaryLine(t *testing.T, summary taxdomain.TaxSummary, name string) taxdomain.TaxSummaryLine {
	t.Helper()
	line, ok := summary.Find(name)
	require.True(t, ok, "summary line %s", name)
	return line
}

func TestTaxfulOrderWithDiscount(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	s := newSource(t, newTaxModule(t, f, nil), true, true)
	ctx := context.Background()

	addLine(t, s, LineTypeProduct, "1", "200", "0", &classA)
	discount := addLine(t, s, LineTypeDiscount, "1", "0", "20", nil)

	total, err := s.TotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "180", total.Value())
	assert.True(t, total.IncludesTax())

	summary, err := s.TaxSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	a := summaryLine(t, summary, "Tax-A")
	assertClose(t, "144", a.BasedOn.Value())
	assertClose(t, "36", a.TaxAmount.Value())
	assertClose(t, "180", a.Taxful.Value())

	taxes := discount.Taxes()
	require.Len(t, taxes, 1)
	assertClose(t, "-16", taxes[0].BaseAmount.Value())
	assertClose(t, "-4", taxes[0].Amount.Value())

	taxless, err := s.TaxlessTotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "144", taxless.Value())
	assert.False(t, taxless.IncludesTax())
}

func TestTaxlessOrderTwoClasses(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	classB, _ := f.ClassWithTax(t, "B", "0.20")
	s := newSource(t, newTaxModule(t, f, nil), false, true)
	ctx := context.Background()

	addLine(t, s, LineTypeProduct, "1", "10", "0", &classA)
	addLine(t, s, LineTypeProduct, "1", "20", "0", &classB)
	addLine(t, s, LineTypeDiscount, "1", "0", "3", nil)

	total, err := s.TotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "27", total.Value())

	summary, err := s.TaxSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	a := summaryLine(t, summary, "Tax-A")
	assertClose(t, "9", a.BasedOn.Value())
	assertClose(t, "2.25", a.TaxAmount.Value())
	assertClose(t, "11.25", a.Taxful.Value())
	b := summaryLine(t, summary, "Tax-B")
	assertClose(t, "18", b.BasedOn.Value())
	assertClose(t, "3.6", b.TaxAmount.Value())
	assertClose(t, "21.6", b.Taxful.Value())

	basedOn, taxAmount, summaryTaxful, err := summary.Totals()
	require.NoError(t, err)
	assertClose(t, "27", basedOn.Value())
	assertClose(t, "5.85", taxAmount.Value())
	assertClose(t, "32.85", summaryTaxful.Value())

	taxful, err := s.TaxfulTotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "32.85", taxful.Value())
}

func TestFullyDiscountedOrder(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.20")
	classB, _ := f.ClassWithTax(t, "B", "0.10")
	s := newSource(t, newTaxModule(t, f, nil), false, true)
	ctx := context.Background()

	addLine(t, s, LineTypeProduct, "1", "10", "0", &classA)
	addLine(t, s, LineTypeProduct, "1", "20", "0", &classB)
	addLine(t, s, LineTypeDiscount, "1", "0", "30", nil)

	total, err := s.TotalPrice(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	summary, err := s.TaxSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	for _, line := range summary {
		assertClose(t, "0", line.BasedOn.Value())
		assertClose(t, "0", line.TaxAmount.Value())
		assertClose(t, "0", line.Taxful.Value())
	}

	taxful, err := s.TaxfulTotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "0", taxful.Value())
}

func TestThreeClassDiscountByPrice(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	classB, _ := f.ClassWithTax(t, "B", "0.15")
	classC, _ := f.ClassWithTax(t, "C", "0.30")
	module := newTaxModule(t, f, func(c *config.TaxingConfig) {
		c.DistributionBasis = config.DistributionBasisPrice
	})
	s := newSource(t, module, true, false)
	ctx := context.Background()

	addLine(t, s, LineTypeProduct, "2", "6", "2", &classA)
	addLine(t, s, LineTypeProduct, "8", "5", "0", &classB)
	addLine(t, s, LineTypeProduct, "6", "12", "12", &classC)
	addLine(t, s, LineTypePayment, "1", "2.5", "0", &classA)
	addLine(t, s, LineTypeShipping, "1", "7.5", "0", &classA)
	discount := addLine(t, s, LineTypeDiscount, "1", "0", "30", nil)

	total, err := s.TotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "90", total.Value())

	_, err = s.TaxSummary(ctx)
	assert.ErrorIs(t, err, pricing.ErrTaxesNotCalculated, "automatic calculation is off")

	require.NoError(t, s.CalculateTaxes(ctx))
	require.True(t, s.TaxesCalculated())

	taxes := discount.Taxes()
	require.Len(t, taxes, 3)
	byName := map[string]taxdomain.LineTax{}
	for _, lt := range taxes {
		byName[lt.Name] = lt
	}
	assertClose(t, "-1", byName["Tax-A"].Amount.Value())
	assertClose(t, "-1.304347826", byName["Tax-B"].Amount.Value())
	assertClose(t, "-3.461538461", byName["Tax-C"].Amount.Value())
	assertClose(t, "-4", byName["Tax-A"].BaseAmount.Value())
	assertClose(t, "-8.695652173", byName["Tax-B"].BaseAmount.Value())
	assertClose(t, "-11.538461538", byName["Tax-C"].BaseAmount.Value())

	summary, err := s.TaxSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 3, "nothing is untaxed")
	assertClose(t, "15", summaryLine(t, summary, "Tax-A").Taxful.Value())
	assertClose(t, "30", summaryLine(t, summary, "Tax-B").Taxful.Value())
	assertClose(t, "45", summaryLine(t, summary, "Tax-C").Taxful.Value())

	total, err = s.TotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "90", total.Value())
}

func TestExemptCustomer(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	group := f.Group(t, taxdomain.TaxExemptGroupIdentifier, false)
	s := newSource(t, newTaxModule(t, f, nil), true, true)
	s.SetCustomer(&taxdomain.Customer{ID: "c1", TaxGroup: &group})
	ctx := context.Background()

	line := addLine(t, s, LineTypeProduct, "1", "100", "0", &classA)

	taxful, err := line.TaxfulPrice()
	require.NoError(t, err, "taxful price of a taxful line is known")
	assertClose(t, "100", taxful.Value())

	summary, err := s.TaxSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, taxdomain.UntaxedSummaryName, summary[0].TaxName)
	assertClose(t, "100", summary[0].BasedOn.Value())

	taxless, err := line.TaxlessPrice()
	require.NoError(t, err)
	assertClose(t, "100", taxless.Value())
	assert.Empty(t, line.Taxes())
}

func TestChangesForgetTaxes(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	s := newSource(t, newTaxModule(t, f, nil), false, false)
	ctx := context.Background()

	line := addLine(t, s, LineTypeProduct, "1", "10", "0", &classA)
	require.NoError(t, s.CalculateTaxes(ctx))
	require.Len(t, line.Taxes(), 1)

	s.SetShippingAddress(&taxdomain.Location{CountryCode: "FI"})
	assert.False(t, s.TaxesCalculated())
	assert.Empty(t, line.Taxes())
	_, err := line.TaxAmount()
	assert.ErrorIs(t, err, pricing.ErrTaxesNotCalculated)

	require.NoError(t, s.CalculateTaxes(ctx))
	addLine(t, s, LineTypeOther, "1", "1", "0", &classA)
	assert.False(t, s.TaxesCalculated())
}

func TestChildLinesAreNotTaxed(t *testing.T) {
	f := taxingtest.New(t)
	classA, _ := f.ClassWithTax(t, "A", "0.25")
	s := newSource(t, newTaxModule(t, f, nil), false, true)
	ctx := context.Background()

	parent, err := s.AddLine(LineParams{ID: "bundle", Quantity: qty("1"), BaseUnitPrice: s.CreatePrice(d("10")), TaxClass: &classA})
	require.NoError(t, err)
	child, err := s.AddLine(LineParams{ID: "part", ParentLineID: "bundle", Quantity: qty("2"), TaxClass: &classA})
	require.NoError(t, err)

	lines, err := s.FinalLines(ctx, true)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Len(t, parent.Taxes(), 1)
	assert.Empty(t, child.Taxes())
	assert.True(t, child.TaxesKnown())

	taxful, err := s.TaxfulTotalPrice(ctx)
	require.NoError(t, err)
	assertClose(t, "12.5", taxful.Value())
}

func TestAddLineValidation(t *testing.T) {
	s := newSource(t, nil, true, false)
	usd, err := money.NewTaxfulPrice(d("1"), "USD")
	require.NoError(t, err)
	taxless, err := money.NewTaxlessPrice(d("1"), "EUR")
	require.NoError(t, err)

	_, err = s.AddLine(LineParams{BaseUnitPrice: usd})
	assert.True(t, errors.Is(err, money.ErrUnitMismatch))

	_, err = s.AddLine(LineParams{BaseUnitPrice: taxless})
	assert.ErrorIs(t, err, money.ErrTaxInclusionMismatch)

	_, err = s.AddLine(LineParams{DiscountAmount: usd})
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)

	_, err = s.AddLine(LineParams{Quantity: qty("-1"), BaseUnitPrice: s.CreatePrice(d("1"))})
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)

	_, err = s.AddLine(LineParams{Type: "gift"})
	assert.ErrorIs(t, err, ErrInvalidLineType)

	_, err = s.AddLine(LineParams{ParentLineID: "missing"})
	assert.ErrorIs(t, err, ErrUnknownParentLine)

	line, err := s.AddLine(LineParams{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, LineTypeProduct, line.Type())
	assert.True(t, line.Quantity().Equal(decimal.NewFromInt(1)))
	_, err = s.AddLine(LineParams{ID: "x"})
	assert.ErrorIs(t, err, ErrDuplicateLineID)

	generated, err := s.AddLine(LineParams{})
	require.NoError(t, err)
	assert.Len(t, generated.LineID(), 26)

	empty, err := s.AddLine(LineParams{Quantity: qty("0"), BaseUnitPrice: s.CreatePrice(d("10")), DiscountAmount: s.CreatePrice(d("2"))})
	require.NoError(t, err)
	assert.True(t, empty.Quantity().IsZero())
	total, err := empty.TotalPrice()
	require.NoError(t, err)
	assertClose(t, "-2", total.Value())

	assert.ErrorIs(t, s.CalculateTaxes(context.Background()), ErrNoTaxModule)
}

func TestNewRejectsBadCurrency(t *testing.T) {
	_, err := New(Options{Currency: "euro"})
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestFactoryThreadsConfig(t *testing.T) {
	cfg := config.DefaultTaxingConfig()
	cfg.CalculateTaxesAutomatically = false
	factory := NewFactory(taxdomain.FixedModule(service.NewNoTaxModule()), config.NewStaticTaxingConfigHolder(cfg))

	s, err := factory.New(Options{Currency: "EUR"})
	require.NoError(t, err)
	addLine(t, s, LineTypeProduct, "1", "5", "0", nil)

	_, err = s.TaxSummary(context.Background())
	assert.ErrorIs(t, err, pricing.ErrTaxesNotCalculated)

	require.NoError(t, s.CalculateTaxes(context.Background()))
	summary, err := s.TaxSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, taxdomain.UntaxedSummaryName, summary[0].TaxName)
}

func TestFactoryFollowsModuleReload(t *testing.T) {
	f := taxingtest.New(t)
	holder := config.NewStaticTaxingConfigHolder(config.DefaultTaxingConfig())
	registry, err := service.NewRegistry(service.RegistryParams{
		Modules: []taxdomain.TaxModule{newTaxModule(t, f, nil), service.NewNoTaxModule()},
		Config:  holder,
	})
	require.NoError(t, err)
	factory := NewFactory(registry, holder)

	s, err := factory.New(Options{Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, service.DefaultTaxModuleIdentifier, s.taxModule.Identifier())

	cfg := config.DefaultTaxingConfig()
	cfg.Module = service.NoTaxModuleIdentifier
	require.NoError(t, holder.Store(cfg))
	s, err = factory.New(Options{Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, service.NoTaxModuleIdentifier, s.taxModule.Identifier())

	cfg.Module = "missing"
	require.NoError(t, holder.Store(cfg))
	_, err = factory.New(Options{Currency: "EUR"})
	assert.ErrorIs(t, err, taxdomain.ErrUnknownTaxModule)
}
