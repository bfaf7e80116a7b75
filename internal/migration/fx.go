package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxengine/internal/config"
	"github.com/smallbiznis/taxengine/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Bootstrap),
)

type bootstrapParams struct {
	fx.In

	Conn   *gorm.DB
	Node   *snowflake.Node
	Config config.Config
	Taxing *config.TaxingConfigHolder
	Log    *zap.Logger
}

// Bootstrap migrates the schema and seeds the configured default taxes.
func Bootstrap(p bootstrapParams) error {
	log := p.Log.Named("migration")
	if p.Config.Bootstrap.RunMigrations {
		if err := Migrate(p.Conn); err != nil {
			return err
		}
		log.Info("tax tables migrated", zap.String("dialect", p.Conn.Dialector.Name()))
	}

	if !p.Config.Bootstrap.SeedDefaults {
		return nil
	}
	created, err := seed.EnsureDefaultTaxes(context.Background(), p.Conn, p.Node, p.Taxing.Get().Defaults)
	if err != nil {
		return err
	}
	log.Info("default taxes seeded", zap.Int("created", created))
	return nil
}
