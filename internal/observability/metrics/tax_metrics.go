package metrics

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/taxengine/pkg/money"
)

const (
	LineKindTaxed         = "taxed"
	LineKindRedistributed = "redistributed"
	LineKindChild         = "child"

	OutcomeSuccess = "success"
	OutcomeError   = "error"

	RuleLookupHit  = "hit"
	RuleLookupMiss = "miss"

	TaxErrorReasonUnitMismatch = "unit_mismatch"
	TaxErrorReasonRepository   = "repository"
	TaxErrorReasonUnknown      = "unknown"
)

// TaxMetrics captures tax engine health signals.
type TaxMetrics struct {
	addTaxesDuration *prometheus.HistogramVec
	lines            *prometheus.CounterVec
	ruleLookups      *prometheus.CounterVec
	distributions    *prometheus.CounterVec
}

var (
	taxMetricsOnce sync.Once
	taxMetrics     *TaxMetrics
)

// TaxWithConfig returns the singleton tax metrics registry using config labels.
func TaxWithConfig(cfg Config) *TaxMetrics {
	taxMetricsOnce.Do(func() {
		taxMetrics = NewTaxMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return taxMetrics
}

// NewTaxMetrics registers the tax metrics on registerer.
func NewTaxMetrics(registerer prometheus.Registerer, cfg Config) *TaxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "taxengine"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	addTaxesDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "taxengine_add_taxes_duration_seconds",
		Help:        "Latency of tax calculation for one order source.",
		Buckets:     []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	}, []string{"module", "outcome"})
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "taxengine_lines_total",
		Help:        "Order lines seen by the tax module by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	ruleLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "taxengine_rule_lookups_total",
		Help:        "Tax rule lookups answered from the per-calculation snapshot or the store.",
		ConstLabels: constLabels,
	}, []string{"result"})
	distributions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "taxengine_distributions_total",
		Help:        "Tax class distributions computed, empty when taxed lines sum to zero.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(addTaxesDuration, lines, ruleLookups, distributions)

	return &TaxMetrics{
		addTaxesDuration: addTaxesDuration,
		lines:            lines,
		ruleLookups:      ruleLookups,
		distributions:    distributions,
	}
}

// ObserveAddTaxes records the duration of one AddTaxes call.
func (m *TaxMetrics) ObserveAddTaxes(module, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.addTaxesDuration.WithLabelValues(module, outcome).Observe(duration.Seconds())
}

func (m *TaxMetrics) AddLines(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.lines.WithLabelValues(kind).Add(float64(n))
}

func (m *TaxMetrics) IncRuleLookup(result string) {
	if m == nil {
		return
	}
	m.ruleLookups.WithLabelValues(result).Inc()
}

func (m *TaxMetrics) IncDistribution(empty bool) {
	if m == nil {
		return
	}
	result := "weighted"
	if empty {
		result = "empty"
	}
	m.distributions.WithLabelValues(result).Inc()
}

// ClassifyTaxError maps an AddTaxes error to a low-cardinality reason.
func ClassifyTaxError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, money.ErrUnitMismatch):
		return TaxErrorReasonUnitMismatch
	case errors.Is(err, ErrRepository):
		return TaxErrorReasonRepository
	default:
		return TaxErrorReasonUnknown
	}
}

// ErrRepository marks errors that came from the rule store.
var ErrRepository = errors.New("tax_rule_repository")
