package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

// DatabaseStore implements Store on the primary SQL database so counters and
// markers are shared between instances.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

// IncrementWithTTL bumps the counter behind key in a single upsert so
// concurrent instances never lose updates. The window is fixed: it starts at
// the first hit and later hits do not extend it.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	if window <= 0 {
		window = time.Minute
	}

	now := time.Now()
	expiry := now.Add(window)

	// Unqualified column names inside the conflict assignments refer to the
	// stored row on sqlite, postgres and mysql alike.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("CASE WHEN expires_at <= ? THEN 1 ELSE count + 1 END", now),
				"expires_at": gorm.Expr("CASE WHEN expires_at <= ? THEN ? ELSE expires_at END", now, expiry),
				"updated_at": now,
			}),
		}).
		Create(&models.CacheEntry{Key: key, Count: 1, ExpiresAt: expiry}).Error
	if err != nil {
		return 0, 0, err
	}

	var entry models.CacheEntry
	if err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error; err != nil {
		return 0, 0, err
	}

	return entry.Count, entry.ExpiresAt.Sub(now), nil
}

// Set upserts the value behind key. A non-positive ttl keeps it until
// overwritten.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}

	expiry := time.Time{}
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiry,
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves the value behind key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errors.New("cache: database store not initialised")
	}

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errors.New("cache: database store not initialised")
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Where("key IN ?", keys).
		Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes lapsed entries and reports how many went. Entries
// without expiry are kept.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}

	// The zero time marks entries without expiry; anything at or before the
	// epoch is treated as such.
	result := s.db.WithContext(ctx).
		Where("expires_at <= ? AND expires_at > ?", time.Now(), time.Unix(0, 0)).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
