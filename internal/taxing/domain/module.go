package domain

import "context"

// TaxModule calculates taxes for the lines of a source. Implementations are
// selected by Identifier.
type TaxModule interface {
	Identifier() string
	Name() string

	// ContextFromRequest builds a context from the customer carried by ctx,
	// or an anonymous context when there is none.
	ContextFromRequest(ctx context.Context) TaxingContext
	ContextFromSource(source Source, overrides *ContextOverrides) TaxingContext

	// AddTaxes replaces the taxes of every top-level line. Child lines are
	// left untouched.
	AddTaxes(ctx context.Context, source Source, lines []Line) error
}

// ModuleSelector returns the tax module selected by the current
// configuration.
type ModuleSelector interface {
	Active() (TaxModule, error)
}

// FixedModule selects the same module on every call.
func FixedModule(module TaxModule) ModuleSelector {
	return fixedModule{module: module}
}

type fixedModule struct {
	module TaxModule
}

func (f fixedModule) Active() (TaxModule, error) {
	if f.module == nil {
		return nil, ErrUnknownTaxModule
	}
	return f.module, nil
}
