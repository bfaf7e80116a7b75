package taxing

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/taxengine/internal/config"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"github.com/smallbiznis/taxengine/internal/taxing/repository"
	"github.com/smallbiznis/taxengine/internal/taxing/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("taxing",
	fx.Provide(repository.NewRepository),
	fx.Provide(NewRedisClient),
	fx.Provide(NewRuleRepository),
	fx.Provide(
		fx.Annotate(service.NewDefaultTaxModule,
			fx.As(new(taxdomain.TaxModule)),
			fx.ResultTags(`group:"tax_modules"`),
		),
		fx.Annotate(service.NewNoTaxModule,
			fx.As(new(taxdomain.TaxModule)),
			fx.ResultTags(`group:"tax_modules"`),
		),
	),
	fx.Provide(service.NewRegistry),
	fx.Provide(NewModuleSelector),
	fx.Invoke(FlushRuleCache),
)

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type ruleRepositoryParams struct {
	fx.In

	Repo   taxdomain.Repository
	Redis  *redis.Client `optional:"true"`
	Config *config.TaxingConfigHolder
	Log    *zap.Logger
}

// NewRuleRepository puts the redis cache in front of the store when redis
// is available.
func NewRuleRepository(p ruleRepositoryParams) taxdomain.RuleRepository {
	if p.Redis == nil {
		return p.Repo
	}
	return repository.NewCachedRuleRepository(p.Repo, p.Redis, p.Config.Get().RuleCacheTTL, p.Log).
		WithTTLFunc(func() time.Duration { return p.Config.Get().RuleCacheTTL })
}

// NewModuleSelector fails startup when the configured module is unknown.
// The registry keeps resolving the module per call afterwards, so a reloaded
// module key applies to sources created from then on.
func NewModuleSelector(registry *service.Registry) (taxdomain.ModuleSelector, error) {
	if _, err := registry.Active(); err != nil {
		return nil, err
	}
	return registry, nil
}

type ruleCache interface {
	Invalidate(ctx context.Context) error
}

// FlushRuleCache drops cached rule lookups on start. Migrations and the
// seed run before start and may have changed the rule table.
func FlushRuleCache(lc fx.Lifecycle, rules taxdomain.RuleRepository, log *zap.Logger) {
	cache, ok := rules.(ruleCache)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := cache.Invalidate(ctx); err != nil {
				log.Warn("rule cache flush failed", zap.Error(err))
				return nil
			}
			log.Debug("rule cache flushed")
			return nil
		},
	})
}
