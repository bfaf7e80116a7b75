package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindRules(ctx context.Context, taxClassID snowflake.ID, group *taxdomain.CustomerTaxGroup) ([]taxdomain.TaxRule, error) {
	stmt := r.db.WithContext(ctx).
		Model(&taxdomain.TaxRule{}).
		Select("tax_rules.*").
		Joins("JOIN tax_rule_tax_classes trc ON trc.tax_rule_id = tax_rules.id").
		Joins("JOIN taxes t ON t.id = tax_rules.tax_id").
		Where("tax_rules.is_enabled = ? AND t.is_enabled = ? AND trc.tax_class_id = ?", true, true, taxClassID)

	if group != nil {
		stmt = stmt.Where(
			`(NOT EXISTS (SELECT 1 FROM tax_rule_customer_tax_groups g WHERE g.tax_rule_id = tax_rules.id)
			 OR EXISTS (SELECT 1 FROM tax_rule_customer_tax_groups g WHERE g.tax_rule_id = tax_rules.id AND g.customer_tax_group_id = ?))`,
			group.ID,
		)
	}

	var rules []taxdomain.TaxRule
	err := stmt.
		Preload("Tax").
		Order("tax_rules.priority DESC").
		Order("tax_rules.id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) CreateTax(ctx context.Context, tax *taxdomain.Tax) error {
	if err := tax.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(tax).Error
}

func (r *repository) FindTaxByCode(ctx context.Context, code string) (*taxdomain.Tax, error) {
	var tax taxdomain.Tax
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.TrimSpace(code)).
		First(&tax).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tax, nil
}

func (r *repository) CreateTaxClass(ctx context.Context, class *taxdomain.TaxClass) error {
	if err := class.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *repository) FindTaxClassByIdentifier(ctx context.Context, identifier string) (*taxdomain.TaxClass, error) {
	var class taxdomain.TaxClass
	err := r.db.WithContext(ctx).
		Where("identifier = ?", strings.TrimSpace(identifier)).
		First(&class).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *repository) CreateCustomerTaxGroup(ctx context.Context, group *taxdomain.CustomerTaxGroup) error {
	if strings.TrimSpace(group.Identifier) == "" {
		return taxdomain.ErrInvalidIdentifier
	}
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) FindCustomerTaxGroupByIdentifier(ctx context.Context, identifier string) (*taxdomain.CustomerTaxGroup, error) {
	var group taxdomain.CustomerTaxGroup
	err := r.db.WithContext(ctx).
		Where("identifier = ?", strings.TrimSpace(identifier)).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateRule inserts the rule and its class and group links. The tax,
// classes and groups must already exist.
func (r *repository) CreateRule(ctx context.Context, rule *taxdomain.TaxRule) error {
	if rule.TaxID == 0 {
		rule.TaxID = rule.Tax.ID
	}
	if rule.TaxID == 0 {
		return taxdomain.ErrMissingTax
	}
	if len(rule.TaxClasses) == 0 {
		return taxdomain.ErrMissingTaxClass
	}
	return r.db.WithContext(ctx).
		Omit("Tax").
		Create(rule).Error
}

func (r *repository) ListRules(ctx context.Context) ([]taxdomain.TaxRule, error) {
	var rules []taxdomain.TaxRule
	err := r.db.WithContext(ctx).
		Preload("Tax").
		Preload("TaxClasses").
		Preload("CustomerTaxGroups").
		Order("priority DESC").
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
