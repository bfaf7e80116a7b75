package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTaxingConfigHolder_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	holder, err := NewTaxingConfigHolder(Config{TaxingConfigPath: dir}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "default_tax", cfg.Module)
	assert.Equal(t, DistributionBasisTaxless, cfg.DistributionBasis)
	assert.True(t, cfg.CalculateTaxesAutomatically)
	assert.Equal(t, []string{"tax_exempt"}, cfg.TaxExemptGroups)
	assert.Equal(t, 5*time.Minute, cfg.RuleCacheTTL)
	require.Len(t, cfg.Defaults, 1)
	assert.Equal(t, "NO_TAX", cfg.Defaults[0].Code)
}

func TestNewTaxingConfigHolder_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	content := `
taxing:
  module: no_tax
  calculateTaxesAutomatically: false
  distributionBasis: Price
  ruleCacheTTL: 30s
  defaults:
    - code: FI_VAT
      name: VAT 24%
      rate: "0.24"
      taxClass: standard
      countryCodes: FI
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taxing.yml"), []byte(content), 0o600))

	holder, err := NewTaxingConfigHolder(Config{TaxingConfigPath: dir}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "no_tax", cfg.Module)
	assert.False(t, cfg.CalculateTaxesAutomatically)
	assert.Equal(t, DistributionBasisPrice, cfg.DistributionBasis)
	assert.Equal(t, 30*time.Second, cfg.RuleCacheTTL)
	require.Len(t, cfg.Defaults, 1)
	assert.Equal(t, "0.24", cfg.Defaults[0].Rate)
	assert.Equal(t, "FI", cfg.Defaults[0].CountryCodes)
}

func TestNewTaxingConfigHolder_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	content := "taxing:\n  distributionBasis: weighted\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taxing.yml"), []byte(content), 0o600))

	_, err := NewTaxingConfigHolder(Config{TaxingConfigPath: dir}, zap.NewNop())
	assert.Error(t, err)
}

func TestValidateTaxingConfig(t *testing.T) {
	cfg := DefaultTaxingConfig()
	require.NoError(t, ValidateTaxingConfig(cfg))

	cfg.Module = ""
	assert.Error(t, ValidateTaxingConfig(cfg))

	cfg = DefaultTaxingConfig()
	cfg.Defaults = append(cfg.Defaults, cfg.Defaults[0])
	assert.Error(t, ValidateTaxingConfig(cfg))

	cfg = DefaultTaxingConfig()
	cfg.RuleCacheTTL = -time.Second
	assert.Error(t, ValidateTaxingConfig(cfg))
}

func TestTaxingConfigHolder_Store(t *testing.T) {
	holder := NewStaticTaxingConfigHolder(DefaultTaxingConfig())

	next := DefaultTaxingConfig()
	next.Module = "no_tax"
	next.RuleCacheTTL = time.Minute
	require.NoError(t, holder.Store(next))
	assert.Equal(t, "no_tax", holder.Get().Module)
	assert.Equal(t, time.Minute, holder.Get().RuleCacheTTL)

	bad := next
	bad.Module = " "
	assert.Error(t, holder.Store(bad))
	assert.Equal(t, "no_tax", holder.Get().Module)
}
