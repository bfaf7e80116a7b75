package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/ordersource"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/log/ctxlogger"
	"github.com/smallbiznis/taxengine/pkg/telemetry/correlation"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type quoteOpts struct {
	*rootOpts
	output string
}

func quote(o *rootOpts) *quoteOpts {
	return &quoteOpts{rootOpts: o}
}

func (q *quoteOpts) cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <order.json>",
		Short: "Calculate the taxes of an order and print lines, totals and the tax summary",
		Args:  cobra.ExactArgs(1),
		RunE:  q.runE,
	}
	cmd.Flags().StringVarP(&q.output, "output", "o", "", "Write the quote to a file instead of stdout")
	return cmd
}

func (q *quoteOpts) runE(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading order: %w", err)
	}
	var order orderInput
	if err := json.Unmarshal(data, &order); err != nil {
		return fmt.Errorf("parsing order: %w", err)
	}

	var (
		repo    taxdomain.Repository
		factory *ordersource.Factory
	)
	app := fx.New(coreModules(), fx.Populate(&repo, &factory))
	if err := app.Start(cmd.Context()); err != nil {
		return err
	}
	defer app.Stop(context.Background()) // nolint:errcheck

	result, err := buildQuote(cmd.Context(), repo, factory, order)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if q.output != "" {
		f, err := os.Create(q.output)
		if err != nil {
			return fmt.Errorf("opening output: %w", err)
		}
		defer f.Close() // nolint:errcheck
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type addressInput struct {
	CountryCode string `json:"countryCode"`
	RegionCode  string `json:"regionCode"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	TaxNumber   string `json:"taxNumber"`
}

func (a *addressInput) location() *taxdomain.Location {
	if a == nil {
		return nil
	}
	return &taxdomain.Location{
		CountryCode: a.CountryCode,
		RegionCode:  a.RegionCode,
		PostalCode:  a.PostalCode,
		City:        a.City,
		TaxNumber:   a.TaxNumber,
	}
}

type customerInput struct {
	ID        string `json:"id"`
	TaxGroup  string `json:"taxGroup"`
	TaxNumber string `json:"taxNumber"`
}

type lineInput struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Parent    string              `json:"parentId"`
	Text      string              `json:"text"`
	Quantity  decimal.NullDecimal `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unitPrice"`
	Discount  decimal.Decimal     `json:"discount"`
	TaxClass  string              `json:"taxClass"`
}

type orderInput struct {
	Reference        string         `json:"reference"`
	CorrelationID    string         `json:"correlationId"`
	Currency         string         `json:"currency"`
	PricesIncludeTax bool           `json:"pricesIncludeTax"`
	Customer         *customerInput `json:"customer"`
	ShippingAddress  *addressInput  `json:"shippingAddress"`
	BillingAddress   *addressInput  `json:"billingAddress"`
	Lines            []lineInput    `json:"lines"`
}

type lineTaxOutput struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Rate       decimal.Decimal `json:"rate"`
	BaseAmount decimal.Decimal `json:"baseAmount"`
	Amount     decimal.Decimal `json:"amount"`
}

type lineOutput struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	TaxfulPrice  decimal.Decimal `json:"taxfulPrice"`
	TaxlessPrice decimal.Decimal `json:"taxlessPrice"`
	Taxes        []lineTaxOutput `json:"taxes"`
}

type summaryOutput struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	BasedOn   decimal.Decimal `json:"basedOn"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Taxful    decimal.Decimal `json:"taxful"`
}

type quoteOutput struct {
	Reference         string          `json:"reference,omitempty"`
	CorrelationID     string          `json:"correlationId"`
	Currency          string          `json:"currency"`
	PricesIncludeTax  bool            `json:"pricesIncludeTax"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	TaxfulTotalPrice  decimal.Decimal `json:"taxfulTotalPrice"`
	TaxlessTotalPrice decimal.Decimal `json:"taxlessTotalPrice"`
	Lines             []lineOutput    `json:"lines"`
	Summary           []summaryOutput `json:"summary"`
}

// buildQuote resolves the named tax classes and groups, calculates the
// taxes of the order and renders the result.
func buildQuote(ctx context.Context, repo taxdomain.Repository, factory *ordersource.Factory, in orderInput) (*quoteOutput, error) {
	ctx, cid := correlation.Ensure(correlation.WithID(ctx, in.CorrelationID))
	ctx = ctxlogger.ContextWithSourceRef(ctx, strings.TrimSpace(in.Reference))

	opts := ordersource.Options{
		Currency:         in.Currency,
		PricesIncludeTax: in.PricesIncludeTax,
		ShippingAddress:  in.ShippingAddress.location(),
		BillingAddress:   in.BillingAddress.location(),
	}
	if in.Customer != nil {
		customer := &taxdomain.Customer{ID: in.Customer.ID, TaxNumber: in.Customer.TaxNumber}
		if name := strings.TrimSpace(in.Customer.TaxGroup); name != "" {
			group, err := repo.FindCustomerTaxGroupByIdentifier(ctx, name)
			if err != nil {
				return nil, err
			}
			if group == nil {
				return nil, fmt.Errorf("unknown customer tax group %q", name)
			}
			customer.TaxGroup = group
		}
		opts.Customer = customer
	}

	source, err := factory.New(opts)
	if err != nil {
		return nil, err
	}

	classes := map[string]*taxdomain.TaxClass{}
	for i, l := range in.Lines {
		var class *taxdomain.TaxClass
		if name := strings.TrimSpace(l.TaxClass); name != "" {
			if class = classes[name]; class == nil {
				class, err = repo.FindTaxClassByIdentifier(ctx, name)
				if err != nil {
					return nil, err
				}
				if class == nil {
					return nil, fmt.Errorf("line %d: %w: %q", i+1, taxdomain.ErrMissingTaxClass, name)
				}
				classes[name] = class
			}
		}
		if _, err := source.AddLine(ordersource.LineParams{
			ID:             l.ID,
			Type:           ordersource.LineType(l.Type),
			ParentLineID:   l.Parent,
			Text:           l.Text,
			Quantity:       l.Quantity,
			BaseUnitPrice:  source.CreatePrice(l.UnitPrice),
			DiscountAmount: source.CreatePrice(l.Discount),
			TaxClass:       class,
		}); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	if err := source.CalculateTaxes(ctx); err != nil {
		ctxlogger.FromContext(ctx).Warn("quote failed", zap.Error(err))
		return nil, err
	}
	out, err := renderQuote(ctx, source)
	if err != nil {
		return nil, err
	}
	out.Reference = strings.TrimSpace(in.Reference)
	out.CorrelationID = cid
	ctxlogger.FromContext(ctx).Info("quote calculated",
		zap.Int("lines", len(out.Lines)),
		zap.String("taxful_total", out.TaxfulTotalPrice.String()),
	)
	return out, nil
}

func renderQuote(ctx context.Context, source *ordersource.Source) (*quoteOutput, error) {
	total, err := source.TotalPrice(ctx)
	if err != nil {
		return nil, err
	}
	taxful, err := source.TaxfulTotalPrice(ctx)
	if err != nil {
		return nil, err
	}
	taxless, err := source.TaxlessTotalPrice(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := source.TaxSummary(ctx)
	if err != nil {
		return nil, err
	}

	out := &quoteOutput{
		Currency:          source.Currency(),
		PricesIncludeTax:  source.PricesIncludeTax(),
		TotalPrice:        total.Value(),
		TaxfulTotalPrice:  taxful.Value(),
		TaxlessTotalPrice: taxless.Value(),
	}
	for _, line := range source.Lines() {
		lineTotal, err := line.TotalPrice()
		if err != nil {
			return nil, err
		}
		lineTaxful, err := line.TaxfulPrice()
		if err != nil {
			return nil, err
		}
		lineTaxless, err := line.TaxlessPrice()
		if err != nil {
			return nil, err
		}
		lo := lineOutput{
			ID:           line.LineID(),
			Type:         string(line.Type()),
			Text:         line.Text(),
			TotalPrice:   lineTotal.Value(),
			TaxfulPrice:  lineTaxful.Value(),
			TaxlessPrice: lineTaxless.Value(),
			Taxes:        []lineTaxOutput{},
		}
		for _, tax := range line.Taxes() {
			lo.Taxes = append(lo.Taxes, lineTaxOutput{
				Code:       tax.TaxCode,
				Name:       tax.Name,
				Rate:       tax.Rate,
				BaseAmount: tax.BaseAmount.Value(),
				Amount:     tax.Amount.Value(),
			})
		}
		out.Lines = append(out.Lines, lo)
	}
	for _, s := range summary.Sorted() {
		out.Summary = append(out.Summary, summaryOutput{
			Name:      s.TaxName,
			Rate:      s.TaxRate,
			BasedOn:   s.BasedOn.Value(),
			TaxAmount: s.TaxAmount.Value(),
			Taxful:    s.Taxful.Value(),
		})
	}
	return out, nil
}
