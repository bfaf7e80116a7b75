package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	taxdomain "github.com/smallbiznis/taxengine/internal/taxing/domain"
	"go.uber.org/zap"
)

const defaultRuleCachePrefix = "taxing:rules:"

// CachedRuleRepository keeps FindRules results in redis for a TTL.
// Redis failures fall through to the wrapped repository. The TTL is read on
// every lookup, so a non-positive value disables caching at runtime.
type CachedRuleRepository struct {
	next   taxdomain.RuleRepository
	client *redis.Client
	ttl    func() time.Duration
	prefix string
	log    *zap.Logger
}

func NewCachedRuleRepository(next taxdomain.RuleRepository, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedRuleRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRuleRepository{
		next:   next,
		client: client,
		ttl:    func() time.Duration { return ttl },
		prefix: defaultRuleCachePrefix,
		log:    log.Named("taxing.rule_cache"),
	}
}

// WithTTLFunc makes the cache read its TTL from fn, typically the reloadable
// tax configuration.
func (c *CachedRuleRepository) WithTTLFunc(fn func() time.Duration) *CachedRuleRepository {
	if fn != nil {
		c.ttl = fn
	}
	return c
}

func (c *CachedRuleRepository) key(taxClassID snowflake.ID, group *taxdomain.CustomerTaxGroup) string {
	groupKey := "anonymous"
	if group != nil {
		groupKey = group.ID.String()
	}
	return fmt.Sprintf("%s%s:%s", c.prefix, taxClassID.String(), groupKey)
}

func (c *CachedRuleRepository) FindRules(ctx context.Context, taxClassID snowflake.ID, group *taxdomain.CustomerTaxGroup) ([]taxdomain.TaxRule, error) {
	ttl := c.ttl()
	if c.client == nil || ttl <= 0 {
		return c.next.FindRules(ctx, taxClassID, group)
	}

	key := c.key(taxClassID, group)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rules []taxdomain.TaxRule
		jsonErr := json.Unmarshal(raw, &rules)
		if jsonErr == nil {
			return rules, nil
		}
		c.log.Warn("discarding undecodable rule cache entry", zap.String("key", key), zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("rule cache read failed", zap.String("key", key), zap.Error(err))
	}

	rules, err := c.next.FindRules(ctx, taxClassID, group)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.log.Warn("rule cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rules, nil
}

// Invalidate drops every cached rule lookup.
func (c *CachedRuleRepository) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
