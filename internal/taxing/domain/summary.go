package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// UntaxedSummaryName names the summary line collecting untaxed amounts.
const UntaxedSummaryName = "Untaxed"

// TaxSummaryLine aggregates every LineTax sharing a tax name.
type TaxSummaryLine struct {
	TaxID     snowflake.ID
	TaxCode   string
	TaxName   string
	TaxRate   decimal.Decimal
	BasedOn   money.Money
	TaxAmount money.Money
	Taxful    money.Money
}

// TaxSummary lists summary lines in order of first encounter.
type TaxSummary []TaxSummaryLine

// SummaryFromLineTaxes folds line taxes by tax name. A non-zero untaxed
// amount is appended as its own line.
func SummaryFromLineTaxes(lineTaxes []LineTax, untaxed money.Money) (TaxSummary, error) {
	index := make(map[string]int, len(lineTaxes))
	summary := make(TaxSummary, 0, len(lineTaxes)+1)

	for _, lt := range lineTaxes {
		i, ok := index[lt.Name]
		if !ok {
			zero := lt.BaseAmount.Zero()
			summary = append(summary, TaxSummaryLine{
				TaxID:     lt.TaxID,
				TaxCode:   lt.TaxCode,
				TaxName:   lt.Name,
				TaxRate:   lt.Rate,
				BasedOn:   zero,
				TaxAmount: zero,
			})
			i = len(summary) - 1
			index[lt.Name] = i
		}

		line := &summary[i]
		basedOn, err := line.BasedOn.Add(lt.BaseAmount)
		if err != nil {
			return nil, err
		}
		taxAmount, err := line.TaxAmount.Add(lt.Amount)
		if err != nil {
			return nil, err
		}
		line.BasedOn = basedOn
		line.TaxAmount = taxAmount
	}

	for i := range summary {
		taxful, err := summary[i].BasedOn.Add(summary[i].TaxAmount)
		if err != nil {
			return nil, err
		}
		summary[i].Taxful = taxful
	}

	if !untaxed.IsZero() {
		summary = append(summary, TaxSummaryLine{
			TaxName:   UntaxedSummaryName,
			TaxRate:   decimal.Zero,
			BasedOn:   untaxed,
			TaxAmount: untaxed.Zero(),
			Taxful:    untaxed,
		})
	}
	return summary, nil
}

// Sorted returns a copy ordered by descending rate, then name. The untaxed
// line stays last.
func (s TaxSummary) Sorted() TaxSummary {
	out := make(TaxSummary, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		ui, uj := out[i].TaxName == UntaxedSummaryName, out[j].TaxName == UntaxedSummaryName
		if ui != uj {
			return uj
		}
		if c := out[i].TaxRate.Cmp(out[j].TaxRate); c != 0 {
			return c > 0
		}
		return out[i].TaxName < out[j].TaxName
	})
	return out
}

// Find returns the summary line for a tax name.
func (s TaxSummary) Find(name string) (TaxSummaryLine, bool) {
	for _, line := range s {
		if line.TaxName == name {
			return line, true
		}
	}
	return TaxSummaryLine{}, false
}

// Totals folds the summary into the based-on, tax and taxful totals. An
// empty summary yields zero values without a currency.
func (s TaxSummary) Totals() (basedOn, taxAmount, taxful money.Money, err error) {
	if len(s) == 0 {
		return money.Money{}, money.Money{}, money.Money{}, nil
	}
	basedOn = s[0].BasedOn.Zero()
	taxAmount, taxful = basedOn, basedOn
	for _, line := range s {
		if basedOn, err = basedOn.Add(line.BasedOn); err != nil {
			return money.Money{}, money.Money{}, money.Money{}, err
		}
		if taxAmount, err = taxAmount.Add(line.TaxAmount); err != nil {
			return money.Money{}, money.Money{}, money.Money{}, err
		}
		if taxful, err = taxful.Add(line.Taxful); err != nil {
			return money.Money{}, money.Money{}, money.Money{}, err
		}
	}
	return basedOn, taxAmount, taxful, nil
}
