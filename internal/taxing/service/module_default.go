package service

import (
	"context"
	"time"

	"github.com/smallbiznis/taxengine/internal/config"
	"github.com/smallbiznis/taxengine/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/log/ctxlogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const DefaultTaxModuleIdentifier = "default_tax"

type DefaultModuleParams struct {
	fx.In

	Rules      taxdomain.RuleRepository
	Config     *config.TaxingConfigHolder
	Log        *zap.Logger
	Metrics    *metrics.Metrics    `optional:"true"`
	TaxMetrics *metrics.TaxMetrics `optional:"true"`
}

// DefaultTaxModule taxes lines with the rule table. Lines without a tax
// class are taxed as a weighted mix of the classes of the other lines.
type DefaultTaxModule struct {
	rules      taxdomain.RuleRepository
	config     *config.TaxingConfigHolder
	log        *zap.Logger
	metrics    *metrics.Metrics
	taxMetrics *metrics.TaxMetrics
}

func NewDefaultTaxModule(p DefaultModuleParams) *DefaultTaxModule {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &DefaultTaxModule{
		rules:      p.Rules,
		config:     p.Config,
		log:        log.Named("taxing.module"),
		metrics:    p.Metrics,
		taxMetrics: p.TaxMetrics,
	}
}

func (m *DefaultTaxModule) Identifier() string { return DefaultTaxModuleIdentifier }

func (m *DefaultTaxModule) Name() string { return "Default Taxation" }

func (m *DefaultTaxModule) ContextFromRequest(ctx context.Context) taxdomain.TaxingContext {
	customer, _ := taxdomain.CustomerFromContext(ctx)
	return taxdomain.ContextFromCustomer(customer)
}

func (m *DefaultTaxModule) ContextFromSource(source taxdomain.Source, overrides *taxdomain.ContextOverrides) taxdomain.TaxingContext {
	return taxdomain.ContextFromSource(source, overrides)
}

type plannedTaxes struct {
	line  taxdomain.Line
	taxes []taxdomain.LineTax
}

// AddTaxes computes the taxes of every top-level line and only then assigns
// them, so a failure leaves all lines as they were.
func (m *DefaultTaxModule) AddTaxes(ctx context.Context, source taxdomain.Source, lines []taxdomain.Line) (err error) {
	start := time.Now()
	ctx, span := otel.Tracer("taxing.module").Start(ctx, "DefaultTaxModule.AddTaxes")
	defer span.End()
	span.SetAttributes(
		attribute.String("taxing.module", m.Identifier()),
		attribute.String("taxing.currency", source.Currency()),
		attribute.Int("taxing.lines", len(lines)),
	)

	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.metrics.RecordTaxError(ctx, m.Identifier(), metrics.ClassifyTaxError(err))
		}
		m.taxMetrics.ObserveAddTaxes(m.Identifier(), outcome, time.Since(start))
	}()

	cfg := m.currentConfig()
	tc := m.ContextFromSource(source, nil)
	resolver := NewResolver(newRuleSnapshot(m.rules, m.taxMetrics), cfg.TaxExemptGroups)
	dist := newDistribution(cfg.DistributionBasis)

	planned := make([]plannedTaxes, 0, len(lines))
	var deferred []taxdomain.Line
	children := 0
	for _, line := range lines {
		if line.ParentLineID() != "" {
			children++
			continue
		}
		class := line.TaxClass()
		if class == nil {
			deferred = append(deferred, line)
			continue
		}
		price, err := line.TotalPrice()
		if err != nil {
			return err
		}
		taxed, err := resolver.CalculateTaxes(ctx, tc, price, class)
		if err != nil {
			return err
		}
		if err := dist.add(class, price, taxed); err != nil {
			return err
		}
		planned = append(planned, plannedTaxes{line: line, taxes: taxed.Taxes})
	}
	taxedLines := len(planned)

	if len(deferred) > 0 {
		shares, err := dist.shares()
		if err != nil {
			return err
		}
		m.taxMetrics.IncDistribution(len(shares) == 0)

		for _, line := range deferred {
			price, err := line.TotalPrice()
			if err != nil {
				return err
			}
			taxes := make([]taxdomain.LineTax, 0, len(shares))
			for _, share := range shares {
				taxed, err := resolver.CalculateTaxes(ctx, tc, price.Mul(share.Proportion), share.TaxClass)
				if err != nil {
					return err
				}
				taxes = append(taxes, taxed.Taxes...)
			}
			planned = append(planned, plannedTaxes{line: line, taxes: taxes})
		}
	}

	lineTaxes := 0
	for _, p := range planned {
		p.line.SetTaxes(p.taxes)
		lineTaxes += len(p.taxes)
	}

	m.taxMetrics.AddLines(metrics.LineKindTaxed, taxedLines)
	m.taxMetrics.AddLines(metrics.LineKindRedistributed, len(deferred))
	m.taxMetrics.AddLines(metrics.LineKindChild, children)
	m.metrics.RecordTaxCalculation(ctx, m.Identifier(), source.Currency(), lineTaxes)
	span.SetAttributes(attribute.Int("taxing.line_taxes", lineTaxes))

	ctxlogger.WithContext(ctx, m.log).Debug("taxes added",
		zap.Int("taxed_lines", taxedLines),
		zap.Int("redistributed_lines", len(deferred)),
		zap.Int("child_lines", children),
		zap.Int("line_taxes", lineTaxes),
		zap.Bool("tax_exempt", tc.CustomerTaxGroup().IsTaxExempt(cfg.TaxExemptGroups...)),
	)
	return nil
}

func (m *DefaultTaxModule) currentConfig() config.TaxingConfig {
	if m.config == nil {
		return config.DefaultTaxingConfig()
	}
	return m.config.Get()
}
