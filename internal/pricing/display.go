package pricing

import "github.com/smallbiznis/taxengine/pkg/money"

// DisplayOption selects how prices are shown to a customer group.
type DisplayOption int

const (
	HidePrices DisplayOption = iota
	DisplayPricesAsStored
	DisplayTaxfulPrices
	DisplayTaxlessPrices
)

func (o DisplayOption) String() string {
	switch o {
	case HidePrices:
		return "hide_prices"
	case DisplayPricesAsStored:
		return "as_stored"
	case DisplayTaxfulPrices:
		return "taxful"
	case DisplayTaxlessPrices:
		return "taxless"
	default:
		return "unknown"
	}
}

// DisplayMode resolves a DisplayOption against the shop's storage mode.
type DisplayMode struct {
	HidePrices bool
	IncludeTax bool
}

func NewDisplayMode(option DisplayOption, shopPricesIncludeTax bool) DisplayMode {
	mode := DisplayMode{HidePrices: option == HidePrices}
	if option == DisplayPricesAsStored {
		mode.IncludeTax = shopPricesIncludeTax
	} else {
		mode.IncludeTax = option == DisplayTaxfulPrices
	}
	return mode
}

// Select returns the line total to display. ok is false when prices are
// hidden. Before taxes are calculated the stored total is returned.
func (m DisplayMode) Select(line LinePrice) (price money.Price, ok bool, err error) {
	if m.HidePrices {
		return money.Price{}, false, nil
	}
	if line.TotalTaxAmount == nil {
		total, err := line.TotalPrice()
		return total, err == nil, err
	}
	if m.IncludeTax {
		price, err = line.TaxfulTotalPrice()
	} else {
		price, err = line.TaxlessTotalPrice()
	}
	return price, err == nil, err
}
