package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DistributionBasisTaxless = "taxless"
	DistributionBasisPrice   = "price"
)

// TaxingConfig controls the tax engine.
type TaxingConfig struct {
	// Module is the identifier of the active tax module.
	Module string `mapstructure:"module"`
	// CalculateTaxesAutomatically makes order sources calculate taxes on
	// every read of their final lines.
	CalculateTaxesAutomatically bool `mapstructure:"calculateTaxesAutomatically"`
	// DistributionBasis weights the split of unclassified lines across tax
	// classes: "taxless" uses each line's taxless price, "price" its
	// native price.
	DistributionBasis string        `mapstructure:"distributionBasis"`
	TaxExemptGroups   []string      `mapstructure:"taxExemptGroups"`
	RuleCacheTTL      time.Duration `mapstructure:"ruleCacheTTL"`
	Defaults          []DefaultTax  `mapstructure:"defaults"`
}

// DefaultTax is seeded on startup together with a tax class and a rule.
type DefaultTax struct {
	Code         string `mapstructure:"code"`
	Name         string `mapstructure:"name"`
	Rate         string `mapstructure:"rate"`
	TaxClass     string `mapstructure:"taxClass"`
	Priority     int    `mapstructure:"priority"`
	CountryCodes string `mapstructure:"countryCodes"`
}

func DefaultTaxingConfig() TaxingConfig {
	return TaxingConfig{
		Module:                      "default_tax",
		CalculateTaxesAutomatically: true,
		DistributionBasis:           DistributionBasisTaxless,
		TaxExemptGroups:             []string{"tax_exempt"},
		RuleCacheTTL:                5 * time.Minute,
		Defaults: []DefaultTax{
			{Code: "NO_TAX", Name: "No tax", Rate: "0", TaxClass: "untaxed"},
		},
	}
}

type TaxingConfigHolder struct {
	current atomic.Value // holds TaxingConfig
}

// NewStaticTaxingConfigHolder wraps a fixed config, mostly for tests.
func NewStaticTaxingConfigHolder(cfg TaxingConfig) *TaxingConfigHolder {
	holder := &TaxingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewTaxingConfigHolder(appCfg Config, log *zap.Logger) (*TaxingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("taxing.config")

	v := viper.New()

	v.SetConfigName("taxing")
	v.SetConfigType("yml")
	if appCfg.TaxingConfigPath != "" {
		v.AddConfigPath(appCfg.TaxingConfigPath)
	}
	v.AddConfigPath("/etc/taxengine")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TAXENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTaxingConfig()
	v.SetDefault("taxing.module", defaults.Module)
	v.SetDefault("taxing.calculateTaxesAutomatically", defaults.CalculateTaxesAutomatically)
	v.SetDefault("taxing.distributionBasis", defaults.DistributionBasis)
	v.SetDefault("taxing.taxExemptGroups", defaults.TaxExemptGroups)
	v.SetDefault("taxing.ruleCacheTTL", defaults.RuleCacheTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read taxing config: %w", err)
		}
		fileFound = false
		v.SetDefault("taxing.defaults", defaults.Defaults)
	}

	cfg, err := unmarshalTaxingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticTaxingConfigHolder(cfg)
	if !fileFound {
		log.Info("taxing config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalTaxingConfig(v)
		if err != nil {
			log.Warn("taxing config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := holder.Store(updated); err != nil {
			log.Warn("taxing config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		log.Info("taxing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func unmarshalTaxingConfig(v *viper.Viper) (TaxingConfig, error) {
	var cfg TaxingConfig
	if err := v.UnmarshalKey("taxing", &cfg); err != nil {
		return TaxingConfig{}, fmt.Errorf("decode taxing config: %w", err)
	}
	cfg.DistributionBasis = strings.ToLower(strings.TrimSpace(cfg.DistributionBasis))
	if err := ValidateTaxingConfig(cfg); err != nil {
		return TaxingConfig{}, err
	}
	return cfg, nil
}

func (h *TaxingConfigHolder) Get() TaxingConfig {
	return h.current.Load().(TaxingConfig)
}

// Store validates cfg and makes it the current config.
func (h *TaxingConfigHolder) Store(cfg TaxingConfig) error {
	if err := ValidateTaxingConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func ValidateTaxingConfig(cfg TaxingConfig) error {
	if strings.TrimSpace(cfg.Module) == "" {
		return errors.New("taxing.module cannot be empty")
	}
	switch cfg.DistributionBasis {
	case DistributionBasisTaxless, DistributionBasisPrice:
	default:
		return fmt.Errorf("taxing.distributionBasis %q is not one of taxless, price", cfg.DistributionBasis)
	}
	if cfg.RuleCacheTTL < 0 {
		return errors.New("taxing.ruleCacheTTL cannot be negative")
	}
	seen := make(map[string]struct{}, len(cfg.Defaults))
	for _, d := range cfg.Defaults {
		code := strings.TrimSpace(d.Code)
		if code == "" || strings.TrimSpace(d.TaxClass) == "" {
			return errors.New("taxing.defaults entries need code and taxClass")
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("taxing.defaults has duplicate code %q", code)
		}
		seen[code] = struct{}{}
	}
	return nil
}
