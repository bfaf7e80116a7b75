package ordersource

import (
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("ordersource",
	fx.Provide(NewFactory),
)

// Factory builds sources bound to the tax module and configuration that are
// current when New is called.
type Factory struct {
	modules taxdomain.ModuleSelector
	config  *config.TaxingConfigHolder
}

func NewFactory(modules taxdomain.ModuleSelector, holder *config.TaxingConfigHolder) *Factory {
	return &Factory{modules: modules, config: holder}
}

// New fills the tax module and automatic calculation flag unless opts
// already set them.
func (f *Factory) New(opts Options) (*Source, error) {
	if opts.TaxModule == nil {
		module, err := f.modules.Active()
		if err != nil {
			return nil, err
		}
		opts.TaxModule = module
		if f.config != nil {
			opts.CalculateTaxesAutomatically = f.config.Get().CalculateTaxesAutomatically
		}
	}
	return New(opts)
}
