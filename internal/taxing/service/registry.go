package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"go.uber.org/fx"
)

type RegistryParams struct {
	fx.In

	Modules []taxdomain.TaxModule `group:"tax_modules"`
	Config  *config.TaxingConfigHolder
}

// Registry holds the available tax modules by identifier.
type Registry struct {
	modules map[string]taxdomain.TaxModule
	config  *config.TaxingConfigHolder
}

func NewRegistry(p RegistryParams) (*Registry, error) {
	r := &Registry{modules: make(map[string]taxdomain.TaxModule, len(p.Modules)), config: p.Config}
	for _, module := range p.Modules {
		if module == nil {
			continue
		}
		id := strings.TrimSpace(module.Identifier())
		if _, dup := r.modules[id]; dup {
			return nil, fmt.Errorf("tax module %q registered twice", id)
		}
		r.modules[id] = module
	}
	if p.Config != nil {
		if _, err := r.Active(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Get(identifier string) (taxdomain.TaxModule, error) {
	module, ok := r.modules[strings.TrimSpace(identifier)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", taxdomain.ErrUnknownTaxModule, identifier)
	}
	return module, nil
}

// Identifiers lists the registered modules in lexical order.
func (r *Registry) Identifiers() []string {
	out := make([]string, 0, len(r.modules))
	for id := range r.modules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Active returns the module selected by the current tax configuration.
func (r *Registry) Active() (taxdomain.TaxModule, error) {
	identifier := DefaultTaxModuleIdentifier
	if r.config != nil {
		identifier = r.config.Get().Module
	}
	return r.Get(identifier)
}
