// Package cache keeps finished simulation results in Redis so that repeated
// seeded runs are served without simulating again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"worldcup_sim/internal/tournament"
)

const keyPrefix = "worldcup-sim:result:"

// DefaultTTL applies when New gets a non-positive TTL.
const DefaultTTL = time.Hour

// SimulationCache stores simulation results keyed by their request. A nil
// *SimulationCache is valid and caches nothing.
type SimulationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// New connects to redisURL. An empty URL disables caching and returns nil.
func New(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*SimulationCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewWithClient(client, ttl, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *SimulationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SimulationCache{client: client, ttl: ttl, logger: logger}
}

// Key identifies a request under a goal model. It is stable under reordering
// of the groups map. Requests without a seed are not reproducible and get no
// key.
func Key(model string, req tournament.Request) (string, bool) {
	if req.Seed == 0 {
		return "", false
	}
	labels := make([]string, 0, len(req.Groups))
	for label := range req.Groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d", model, req.Format, req.NumSimulations, req.Seed)
	for _, label := range labels {
		fmt.Fprintf(h, "|%s=%s", label, strings.Join(req.Groups[label], ","))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), true
}

// Get returns the cached result for key. Redis failures count as misses.
func (c *SimulationCache) Get(ctx context.Context, key string) (*tournament.Result, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to get cached result")
		}
		return nil, false
	}

	var res tournament.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to unmarshal cached result")
		return nil, false
	}

	c.logger.WithField("key", key).Debug("Cache hit")
	return &res, true
}

// Set stores res under key with the cache TTL.
func (c *SimulationCache) Set(ctx context.Context, key string, res *tournament.Result) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Error("Failed to cache result")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ttl": c.ttl.String(),
	}).Debug("Cached result")
	return nil
}

// Enabled reports whether results are cached at all.
func (c *SimulationCache) Enabled() bool { return c != nil }

// Close releases the Redis connection.
func (c *SimulationCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
