package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/pkg/money"
)

// TaxExemptGroupIdentifier marks a customer tax group whose members are never taxed.
const TaxExemptGroupIdentifier = "tax_exempt"

// Tax is a single tax that is either a rate (fraction, 0.24 for 24 %) or a
// fixed amount in a currency.
// NOTE:
// - code is a stable identifier, name is shown on receipts and summaries
// - exactly one of rate or amount is set
type Tax struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Code string       `gorm:"type:text;not null;uniqueIndex"`
	Name string       `gorm:"type:text;not null"`

	Rate           *decimal.Decimal `gorm:"precision:9;scale:6"`
	AmountValue    *decimal.Decimal `gorm:"column:amount_value;precision:20;scale:6"`
	AmountCurrency *string          `gorm:"column:amount_currency;type:varchar(3)"`

	IsEnabled bool `gorm:"column:is_enabled;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tax) TableName() string { return "taxes" }

func (t *Tax) Validate() error {
	if strings.TrimSpace(t.Code) == "" {
		return ErrInvalidTaxCode
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrInvalidTaxName
	}
	if (t.Rate == nil) == (t.AmountValue == nil) {
		return ErrInvalidTaxRate
	}
	if t.Rate != nil && t.Rate.IsNegative() {
		return ErrInvalidTaxRate
	}
	if t.AmountValue != nil {
		if t.AmountCurrency == nil {
			return ErrInvalidTaxAmount
		}
		if _, err := money.NewMoney(*t.AmountValue, *t.AmountCurrency); err != nil {
			return ErrInvalidTaxAmount
		}
	}
	return nil
}

// EffectiveRate returns the rate of a rate-based tax and zero for fixed amounts.
func (t Tax) EffectiveRate() decimal.Decimal {
	if t.Rate == nil {
		return decimal.Zero
	}
	return *t.Rate
}

// FixedAmount returns the fixed amount of the tax, if it has one.
func (t Tax) FixedAmount() (money.Money, bool, error) {
	if t.AmountValue == nil || t.AmountCurrency == nil {
		return money.Money{}, false, nil
	}
	m, err := money.NewMoney(*t.AmountValue, *t.AmountCurrency)
	if err != nil {
		return money.Money{}, false, err
	}
	return m, true, nil
}

// CalculateAmount returns the tax for the given taxless base.
func (t Tax) CalculateAmount(base money.Money) (money.Money, error) {
	fixed, ok, err := t.FixedAmount()
	if err != nil {
		return money.Money{}, err
	}
	if ok {
		if !fixed.UnitMatches(base) {
			// Reuse the unit check so callers get a *money.UnitMismatchError.
			return base.Add(fixed)
		}
		return fixed, nil
	}
	return base.Mul(t.EffectiveRate()), nil
}

// TaxClass classifies products (and other lines) for taxation.
type TaxClass struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Identifier string       `gorm:"type:text;not null;uniqueIndex"`
	Name       string       `gorm:"type:text;not null"`
	IsEnabled  bool         `gorm:"column:is_enabled;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxClass) TableName() string { return "tax_classes" }

func (c *TaxClass) Validate() error {
	if strings.TrimSpace(c.Identifier) == "" {
		return ErrInvalidIdentifier
	}
	return nil
}

// CustomerTaxGroup classifies customers for taxation.
type CustomerTaxGroup struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Identifier string       `gorm:"type:text;not null;uniqueIndex"`
	Name       string       `gorm:"type:text;not null"`
	TaxExempt  bool         `gorm:"column:tax_exempt;not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerTaxGroup) TableName() string { return "customer_tax_groups" }

// IsTaxExempt reports whether the group is exempt, either by flag or by one
// of the given exempt identifiers. With no identifiers given, the
// TaxExemptGroupIdentifier is used.
func (g *CustomerTaxGroup) IsTaxExempt(exemptIdentifiers ...string) bool {
	if g == nil {
		return false
	}
	if g.TaxExempt {
		return true
	}
	if len(exemptIdentifiers) == 0 {
		exemptIdentifiers = []string{TaxExemptGroupIdentifier}
	}
	for _, id := range exemptIdentifiers {
		if strings.EqualFold(strings.TrimSpace(id), g.Identifier) {
			return true
		}
	}
	return false
}

// TaxRule binds a Tax to a set of tax classes, customer tax groups and
// location patterns. Rules with higher priority are evaluated first.
type TaxRule struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TaxID    snowflake.ID `gorm:"column:tax_id;not null;index"`
	Tax      Tax          `gorm:"foreignKey:TaxID"`
	Priority int          `gorm:"not null;default:0"`

	// Comma separated codes, globs ("FI-*") or ranges ("00100-00199").
	// An empty pattern matches everything.
	CountryCodesPattern string `gorm:"column:country_codes_pattern;type:text;not null;default:''"`
	RegionCodesPattern  string `gorm:"column:region_codes_pattern;type:text;not null;default:''"`
	PostalCodesPattern  string `gorm:"column:postal_codes_pattern;type:text;not null;default:''"`

	TaxClasses        []TaxClass         `gorm:"many2many:tax_rule_tax_classes;"`
	CustomerTaxGroups []CustomerTaxGroup `gorm:"many2many:tax_rule_customer_tax_groups;"`

	IsEnabled bool `gorm:"column:is_enabled;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRule) TableName() string { return "tax_rules" }

// Matches reports whether the rule's location patterns accept the context.
// Tax class and customer group filtering happen in the rule query.
func (r TaxRule) Matches(tc TaxingContext) bool {
	loc := tc.Location()
	return MatchPattern(r.CountryCodesPattern, loc.CountryCode) &&
		MatchPattern(r.RegionCodesPattern, loc.RegionCode) &&
		MatchPattern(r.PostalCodesPattern, loc.PostalCode)
}

// Models lists the gorm models of the tax tables in creation order.
func Models() []any {
	return []any{
		&Tax{},
		&TaxClass{},
		&CustomerTaxGroup{},
		&TaxRule{},
	}
}
