package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/internal/taxing/repository"
	"github.com/smallbiznis/taxengine/pkg/db"
	"gorm.io/gorm"
)

// EnsureDefaultTaxes creates the configured default taxes, each with its tax
// class and a rule binding them. Taxes are matched by code, so running it
// again only adds what is missing. It returns the number of taxes created.
//
// A unique key violation means another process seeded concurrently; the
// seed is then retried once against the committed rows.
func EnsureDefaultTaxes(ctx context.Context, conn *gorm.DB, node *snowflake.Node, defaults []config.DefaultTax) (int, error) {
	if conn == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	created, err := ensureDefaultTaxes(ctx, conn, node, defaults)
	if db.IsDuplicateKeyErr(err) {
		created, err = ensureDefaultTaxes(ctx, conn, node, defaults)
	}
	return created, err
}

func ensureDefaultTaxes(ctx context.Context, conn *gorm.DB, node *snowflake.Node, defaults []config.DefaultTax) (int, error) {
	created := 0
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)
		for _, def := range defaults {
			ok, err := ensureDefaultTaxTx(ctx, repo, node, def)
			if err != nil {
				return fmt.Errorf("seed tax %q: %w", def.Code, err)
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func ensureDefaultTaxTx(ctx context.Context, repo taxdomain.Repository, node *snowflake.Node, def config.DefaultTax) (bool, error) {
	code := strings.TrimSpace(def.Code)
	existing, err := repo.FindTaxByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(def.Rate))
	if err != nil {
		return false, fmt.Errorf("%w: %q", taxdomain.ErrInvalidTaxRate, def.Rate)
	}
	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = code
	}
	tax := taxdomain.Tax{
		ID:        node.Generate(),
		Code:      code,
		Name:      name,
		Rate:      &rate,
		IsEnabled: true,
	}
	if err := repo.CreateTax(ctx, &tax); err != nil {
		return false, err
	}

	class, err := ensureTaxClassTx(ctx, repo, node, def.TaxClass)
	if err != nil {
		return false, err
	}

	rule := taxdomain.TaxRule{
		ID:                  node.Generate(),
		TaxID:               tax.ID,
		Priority:            def.Priority,
		CountryCodesPattern: strings.TrimSpace(def.CountryCodes),
		TaxClasses:          []taxdomain.TaxClass{*class},
		IsEnabled:           true,
	}
	if err := repo.CreateRule(ctx, &rule); err != nil {
		return false, err
	}
	return true, nil
}

// ensureTaxClassTx finds or creates the class named by the config. The
// configured text becomes the class name and its slug the identifier.
func ensureTaxClassTx(ctx context.Context, repo taxdomain.Repository, node *snowflake.Node, name string) (*taxdomain.TaxClass, error) {
	name = strings.TrimSpace(name)
	identifier := slug.Make(name)
	if identifier == "" {
		return nil, fmt.Errorf("tax class %q has no usable identifier", name)
	}
	class, err := repo.FindTaxClassByIdentifier(ctx, identifier)
	if err != nil || class != nil {
		return class, err
	}
	class = &taxdomain.TaxClass{
		ID:         node.Generate(),
		Identifier: identifier,
		Name:       name,
		IsEnabled:  true,
	}
	if err := repo.CreateTaxClass(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}
