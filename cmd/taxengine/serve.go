package main

import (
	"context"

	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/internal/taxing/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serveOpts struct {
	*rootOpts
}

func serve(o *rootOpts) *serveOpts {
	return &serveOpts{rootOpts: o}
}

func (s *serveOpts) cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the tax tables and keep the engine running with hot reloaded tax config",
		Args:  cobra.NoArgs,
		RunE:  s.runE,
	}
}

func (s *serveOpts) runE(*cobra.Command, []string) error {
	app := fx.New(
		coreModules(),
		fx.Invoke(logInventory),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

// logInventory reports the loaded modules and rules once on start.
func logInventory(lc fx.Lifecycle, log *zap.Logger, registry *service.Registry, repo taxdomain.Repository, holder *config.TaxingConfigHolder) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			rules, err := repo.ListRules(ctx)
			if err != nil {
				return err
			}
			cfg := holder.Get()
			log.Info("tax engine ready",
				zap.Strings("modules", registry.Identifiers()),
				zap.String("active_module", cfg.Module),
				zap.String("distribution_basis", cfg.DistributionBasis),
				zap.Bool("calculate_taxes_automatically", cfg.CalculateTaxesAutomatically),
				zap.Int("tax_rules", len(rules)),
			)
			return nil
		},
	})
}

type migrateOpts struct {
	*rootOpts
}

func migrate(o *rootOpts) *migrateOpts {
	return &migrateOpts{rootOpts: o}
}

func (m *migrateOpts) cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed default taxes, then exit",
		Args:  cobra.NoArgs,
		RunE:  m.runE,
	}
}

func (m *migrateOpts) runE(cmd *cobra.Command, _ []string) error {
	app := fx.New(coreModules())
	if err := app.Start(cmd.Context()); err != nil {
		return err
	}
	return app.Stop(context.Background())
}
