// Package taxingtest builds in-memory tax tables for tests.
package taxingtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/internal/taxing/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with the tax tables.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("taxing_%d", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(taxdomain.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Fixtures creates tax records through the real repository.
type Fixtures struct {
	DB   *gorm.DB
	Repo taxdomain.Repository
	node *snowflake.Node
}

func New(t testing.TB) *Fixtures {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := NewDB(t)
	return &Fixtures{DB: db, Repo: repository.NewRepository(db), node: node}
}

func (f *Fixtures) NextID() snowflake.ID {
	return f.node.Generate()
}

// Tax creates an enabled rate tax named "Tax-<code>".
func (f *Fixtures) Tax(t testing.TB, code, rate string) taxdomain.Tax {
	t.Helper()
	r := decimal.RequireFromString(rate)
	tax := taxdomain.Tax{
		ID:        f.NextID(),
		Code:      code,
		Name:      "Tax-" + code,
		Rate:      &r,
		IsEnabled: true,
	}
	require.NoError(t, f.Repo.CreateTax(context.Background(), &tax))
	return tax
}

func (f *Fixtures) TaxClass(t testing.TB, identifier string) taxdomain.TaxClass {
	t.Helper()
	class := taxdomain.TaxClass{
		ID:         f.NextID(),
		Identifier: identifier,
		Name:       strings.ToUpper(identifier),
		IsEnabled:  true,
	}
	require.NoError(t, f.Repo.CreateTaxClass(context.Background(), &class))
	return class
}

func (f *Fixtures) Group(t testing.TB, identifier string, exempt bool) taxdomain.CustomerTaxGroup {
	t.Helper()
	group := taxdomain.CustomerTaxGroup{
		ID:         f.NextID(),
		Identifier: identifier,
		Name:       identifier,
		TaxExempt:  exempt,
	}
	require.NoError(t, f.Repo.CreateCustomerTaxGroup(context.Background(), &group))
	return group
}

// RuleParams describes a rule to create. Disabled rules are created enabled
// and switched off afterwards.
type RuleParams struct {
	Tax      taxdomain.Tax
	Classes  []taxdomain.TaxClass
	Groups   []taxdomain.CustomerTaxGroup
	Priority int
	Country  string
	Region   string
	Postal   string
	Disabled bool
}

func (f *Fixtures) Rule(t testing.TB, def RuleParams) taxdomain.TaxRule {
	t.Helper()
	rule := taxdomain.TaxRule{
		ID:                  f.NextID(),
		TaxID:               def.Tax.ID,
		Priority:            def.Priority,
		CountryCodesPattern: def.Country,
		RegionCodesPattern:  def.Region,
		PostalCodesPattern:  def.Postal,
		TaxClasses:          def.Classes,
		CustomerTaxGroups:   def.Groups,
		IsEnabled:           true,
	}
	require.NoError(t, f.Repo.CreateRule(context.Background(), &rule))
	if def.Disabled {
		require.NoError(t, f.DB.Model(&taxdomain.TaxRule{}).
			Where("id = ?", rule.ID).
			Update("is_enabled", false).Error)
		rule.IsEnabled = false
	}
	rule.Tax = def.Tax
	return rule
}

// ClassWithTax creates a class served by a single catch-all rule.
func (f *Fixtures) ClassWithTax(t testing.TB, code, rate string) (taxdomain.TaxClass, taxdomain.Tax) {
	t.Helper()
	tax := f.Tax(t, code, rate)
	class := f.TaxClass(t, "class-"+strings.ToLower(code))
	f.Rule(t, RuleParams{Tax: tax, Classes: []taxdomain.TaxClass{class}})
	return class, tax
}
