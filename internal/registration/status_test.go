package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusPersistable(t *testing.T) {
	require.True(t, StatusUntreated.Persistable())
	require.True(t, StatusAccepted.Persistable())
	require.True(t, StatusRejected.Persistable())
	require.False(t, StatusExpired.Persistable())
	require.False(t, Status("banana").Persistable())
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusExpired.Valid())
	require.True(t, StatusUntreated.Valid())
	require.False(t, Status("").Valid())
}

func TestKeyExpired(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	tests := []struct {
		name     string
		stored   Status
		joinedAt time.Time
		want     bool
	}{
		{
			name:     "accepted inside window",
			stored:   StatusAccepted,
			joinedAt: now.Add(-window + time.Second),
			want:     false,
		},
		{
			name:     "accepted exactly at boundary",
			stored:   StatusAccepted,
			joinedAt: now.Add(-window),
			want:     true,
		},
		{
			name:     "accepted past window",
			stored:   StatusAccepted,
			joinedAt: now.Add(-window - time.Hour),
			want:     true,
		},
		{
			name:     "untreated never expires",
			stored:   StatusUntreated,
			joinedAt: now.Add(-10 * window),
			want:     false,
		},
		{
			name:     "rejected never expires",
			stored:   StatusRejected,
			joinedAt: now.Add(-10 * window),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, KeyExpired(tt.stored, tt.joinedAt, window, now))
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour
	fresh := now.Add(-time.Hour)
	stale := now.Add(-window - time.Hour)

	require.Equal(t, StatusAccepted, EffectiveStatus(StatusAccepted, fresh, window, now))
	require.Equal(t, StatusExpired, EffectiveStatus(StatusAccepted, stale, window, now))
	require.Equal(t, StatusUntreated, EffectiveStatus(StatusUntreated, stale, window, now))
	require.Equal(t, StatusRejected, EffectiveStatus(StatusRejected, stale, window, now))
}

func TestEffectiveStatusIsReadOnly(t *testing.T) {
	// Resolving an expired reading twice must keep yielding expired; nothing
	// about the stored inputs changes between calls.
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	joined := now.Add(-48 * time.Hour)

	first := EffectiveStatus(StatusAccepted, joined, window, now)
	second := EffectiveStatus(StatusAccepted, joined, window, now)
	require.Equal(t, StatusExpired, first)
	require.Equal(t, first, second)
}
