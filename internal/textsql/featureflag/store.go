// Package featureflag answers whether a tenant has the question-answering
// feature switched on. Every doubt resolves to "off".
package featureflag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"school-query-workers/internal/common/database"
	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
)

const (
	DefaultFeature  = "text_to_sql"
	DefaultCacheTTL = 5 * time.Minute
)

const lookupQuery = `SELECT enabled FROM tenant_features WHERE tenant_id = $1 AND feature = $2`

// Store reports per-tenant feature state.
type Store interface {
	IsEnabled(ctx context.Context, tenantID string) (bool, error)
}

// PostgresStore reads tenant_features with a Redis cache in front. The
// cache is optional.
type PostgresStore struct {
	db      *database.PostgresClient
	cache   *database.RedisClient
	feature string
	ttl     time.Duration
	logger  logger.Logger
}

func NewPostgresStore(db *database.PostgresClient, cache *database.RedisClient, feature string, ttl time.Duration, log logger.Logger) *PostgresStore {
	if feature == "" {
		feature = DefaultFeature
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PostgresStore{
		db:      db,
		cache:   cache,
		feature: feature,
		ttl:     ttl,
		logger:  log.With(map[string]interface{}{"component": "featureflag", "feature": feature}),
	}
}

func (s *PostgresStore) cacheKey(tenantID string) string {
	return "feature:" + s.feature + ":" + tenantID
}

// IsEnabled returns false for an unknown tenant or a missing flag row. A
// lookup failure also returns false, together with the error.
func (s *PostgresStore) IsEnabled(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, nil
	}

	key := s.cacheKey(tenantID)
	if s.cache != nil {
		val, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			return val == "1", nil
		case !errors.Is(err, database.ErrCacheMiss):
			s.logger.Warn("feature cache read failed", map[string]interface{}{
				"tenantId": tenantID,
				"error":    err.Error(),
			})
		}
	}

	var enabled bool
	err := s.db.QueryRow(ctx, lookupQuery, tenantID, s.feature).Scan(&enabled)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, apperrors.NewFeatureCheckFailedError(fmt.Errorf("lookup %s for %s: %w", s.feature, tenantID, err))
	}

	if s.cache != nil {
		val := "0"
		if enabled {
			val = "1"
		}
		if err := s.cache.Set(ctx, key, val, s.ttl); err != nil {
			s.logger.Debug("feature cache write failed", map[string]interface{}{
				"tenantId": tenantID,
				"error":    err.Error(),
			})
		}
	}
	return enabled, nil
}

// Invalidate drops the cached state for tenantID.
func (s *PostgresStore) Invalidate(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, s.cacheKey(tenantID))
}
