package migration

import (
	"io/fs"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return conn
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, "sql/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))

	_, err = migrationSource()
	require.NoError(t, err)
}

func TestMigrateNonPostgres(t *testing.T) {
	conn := openDB(t, "migration_auto")
	require.NoError(t, Migrate(conn))
	// A restart migrates the existing schema again.
	require.NoError(t, Migrate(conn))

	for _, model := range taxdomain.Models() {
		assert.True(t, conn.Migrator().HasTable(model))
	}
	assert.True(t, conn.Migrator().HasTable("tax_rule_tax_classes"))
	assert.True(t, conn.Migrator().HasTable("tax_rule_customer_tax_groups"))

	assert.Error(t, Migrate(nil))
	assert.Error(t, RunMigrations(nil))
}

func TestBootstrap(t *testing.T) {
	conn := openDB(t, "migration_bootstrap")
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	cfg := config.Config{Bootstrap: config.BootstrapConfig{RunMigrations: true, SeedDefaults: true}}
	p := bootstrapParams{
		Conn:   conn,
		Node:   node,
		Config: cfg,
		Taxing: config.NewStaticTaxingConfigHolder(config.DefaultTaxingConfig()),
		Log:    zaptest.NewLogger(t),
	}
	require.NoError(t, Bootstrap(p))
	require.NoError(t, Bootstrap(p))

	var count int64
	require.NoError(t, conn.Model(&taxdomain.Tax{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
