package models

import (
	"time"
)

// CacheEntry is a cached value held in the database so that counters and
// status markers survive restarts and are shared between instances. Values
// live in Value; windowed counters use the integer Count column so they can
// be bumped atomically in SQL. A zero ExpiresAt means the entry never lapses.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	Count     int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
