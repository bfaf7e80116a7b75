package service

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// classShare is the weight of one tax class in a distribution.
type classShare struct {
	TaxClass   *taxdomain.TaxClass
	Proportion decimal.Decimal
}

// distribution splits unclassified lines across the tax classes of the
// taxed lines. Classes keep the order in which they were first seen.
type distribution struct {
	basis  string
	order  []*taxdomain.TaxClass
	totals map[classKey]money.Money
	total  *money.Money
}

type classKey struct {
	id         int64
	identifier string
}

func keyOf(class *taxdomain.TaxClass) classKey {
	return classKey{id: class.ID.Int64(), identifier: class.Identifier}
}

func newDistribution(basis string) *distribution {
	if basis != config.DistributionBasisPrice {
		basis = config.DistributionBasisTaxless
	}
	return &distribution{basis: basis, totals: map[classKey]money.Money{}}
}

// add accounts for one taxed line. price is the line's own total and taxed
// the result of taxing it.
func (d *distribution) add(class *taxdomain.TaxClass, price money.Price, taxed taxdomain.TaxedPrice) error {
	weight := taxed.Taxless.Amount()
	if d.basis == config.DistributionBasisPrice {
		weight = price.Amount()
	}

	key := keyOf(class)
	current, seen := d.totals[key]
	if !seen {
		d.order = append(d.order, class)
		current = weight.Zero()
	}
	next, err := current.Add(weight)
	if err != nil {
		return err
	}
	d.totals[key] = next

	if d.total == nil {
		zero := weight.Zero()
		d.total = &zero
	}
	total, err := d.total.Add(weight)
	if err != nil {
		return err
	}
	d.total = &total
	return nil
}

// shares returns the proportion of each class. It is empty when nothing was
// taxed or the taxed lines sum to zero.
func (d *distribution) shares() ([]classShare, error) {
	if d.total == nil || d.total.IsZero() {
		return nil, nil
	}
	out := make([]classShare, 0, len(d.order))
	for _, class := range d.order {
		proportion, err := d.totals[keyOf(class)].Ratio(*d.total)
		if err != nil {
			return nil, err
		}
		out = append(out, classShare{TaxClass: class, Proportion: proportion})
	}
	return out, nil
}
