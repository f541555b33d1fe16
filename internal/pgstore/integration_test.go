package pgstore

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hllutils/sessionmirror/pkg/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// setupIntegration connects against a real database. The target schema must
// already contain the sessions, credentials, hss_api_keys and session_logs
// tables (session_logs range-partitioned by event_time).
func setupIntegration(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("SESSIONMIRROR_PG_URL")
	if url == "" {
		t.Skip("SESSIONMIRROR_PG_URL not set")
	}

	s := New(Config{URL: url, PoolMinSize: 1, PoolMaxSize: 4}, testLogger())
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

func TestIntegrationSessionUpsertIdempotent(t *testing.T) {
	s := setupIntegration(t)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(time.Microsecond)
	rec := models.SessionSnapshot{
		SessionID: 910001,
		GuildID:   42,
		Name:      "integration",
		StartTime: end.Add(-time.Hour),
		EndTime:   &end,
	}
	t.Cleanup(func() {
		_ = s.DeleteSession(ctx, rec.SessionID)
	})

	require.NoError(t, s.UpsertSession(ctx, rec))
	// Same snapshot again must be a no-op, and a changed one must win.
	require.NoError(t, s.UpsertSession(ctx, rec))
	rec.Name = "integration-renamed"
	require.NoError(t, s.UpsertSession(ctx, rec))
}

func TestIntegrationLogRoundTrip(t *testing.T) {
	s := setupIntegration(t)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(time.Microsecond)
	session := models.SessionSnapshot{
		SessionID: 910002,
		GuildID:   42,
		Name:      "integration-logs",
		StartTime: end.Add(-time.Hour),
		EndTime:   &end,
	}
	require.NoError(t, s.UpsertSession(ctx, session))
	t.Cleanup(func() {
		_, _ = s.PurgeSessionLogs(ctx, session.SessionID)
		_ = s.DeleteSession(ctx, session.SessionID)
	})

	first := end.Add(-30 * time.Minute)
	second := end.Add(-20 * time.Minute)
	require.NoError(t, s.CreatePartition(ctx, first))

	killer := "Foo"
	victim := "Bar"
	logs := []models.LogLine{
		{EventTime: first, EventType: "kill", PlayerName: &killer, Player2Name: &victim},
		{EventTime: second, EventType: "death", PlayerName: &victim},
	}
	require.NoError(t, s.InsertLogs(ctx, session.SessionID, logs))

	got, err := s.FetchLogs(ctx, session.SessionID, LogFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "kill", got[0].EventType)
	assert.Equal(t, "death", got[1].EventType)
	assert.Equal(t, "Foo", *got[0].PlayerName)

	filtered, err := s.FetchLogs(ctx, session.SessionID, LogFilter{EventTypes: []string{"death"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "death", filtered[0].EventType)

	purged, err := s.PurgeSessionLogs(ctx, session.SessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)
}

func TestIntegrationSessionEndUpdate(t *testing.T) {
	s := setupIntegration(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
	rec := models.SessionSnapshot{
		SessionID: 910003,
		GuildID:   42,
		Name:      "integration-end",
		StartTime: start,
	}
	t.Cleanup(func() {
		_ = s.DeleteSession(ctx, rec.SessionID)
	})
	require.NoError(t, s.UpsertSession(ctx, rec))

	end := start.Add(30 * time.Minute)
	require.NoError(t, s.UpdateSessionEnd(ctx, rec.SessionID, &end))
	// Clearing the end time reopens the session.
	require.NoError(t, s.UpdateSessionEnd(ctx, rec.SessionID, nil))
}

func TestIntegrationCleanupExpiredSessions(t *testing.T) {
	s := setupIntegration(t)
	ctx := context.Background()

	end := time.Now().UTC().Truncate(time.Microsecond).Add(-48 * time.Hour)
	expired := models.SessionSnapshot{
		SessionID: 910004,
		GuildID:   42,
		Name:      "integration-expired",
		StartTime: end.Add(-time.Hour),
		EndTime:   &end,
	}
	live := models.SessionSnapshot{
		SessionID: 910005,
		GuildID:   42,
		Name:      "integration-live",
		StartTime: time.Now().UTC().Truncate(time.Microsecond),
	}
	t.Cleanup(func() {
		_ = s.DeleteSession(ctx, expired.SessionID)
		_ = s.DeleteSession(ctx, live.SessionID)
	})
	require.NoError(t, s.UpsertSession(ctx, expired))
	require.NoError(t, s.UpsertSession(ctx, live))

	// Only soft-deleted sessions past the cutoff are removed.
	ids, err := s.CleanupExpiredSessions(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.NotContains(t, ids, expired.SessionID)

	require.NoError(t, s.MarkSessionDeleted(ctx, expired.SessionID, nil))
	ids, err = s.CleanupExpiredSessions(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Contains(t, ids, expired.SessionID)
	assert.NotContains(t, ids, live.SessionID)
}
