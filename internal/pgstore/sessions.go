package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hllutils/sessionmirror/pkg/models"
)

const upsertSessionQuery = `INSERT INTO sessions (id, guild_id, name, start_time, end_time, is_auto, credentials_id, modifier_flags) ` +
	`VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ` +
	`ON CONFLICT (id) DO UPDATE SET guild_id=EXCLUDED.guild_id, name=EXCLUDED.name, start_time=EXCLUDED.start_time, ` +
	`end_time=EXCLUDED.end_time, is_auto=EXCLUDED.is_auto, credentials_id=EXCLUDED.credentials_id, modifier_flags=EXCLUDED.modifier_flags`

// UpsertSession mirrors a session row keyed on its primary-store id.
// Re-running the same snapshot is a no-op after the first success.
func (s *Store) UpsertSession(ctx context.Context, rec models.SessionSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, upsertSessionQuery,
		rec.SessionID,
		rec.GuildID,
		rec.Name,
		rec.StartTime,
		rec.EndTime,
		rec.IsAuto,
		rec.CredentialsID,
		rec.ModifierFlags,
	)
	if err != nil {
		return fmt.Errorf("upsert session %d: %w", rec.SessionID, err)
	}
	return nil
}

// UpdateSessionEnd sets or clears a session's end time.
func (s *Store) UpdateSessionEnd(ctx context.Context, sessionID int64, endTime *time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, "UPDATE sessions SET end_time = $2 WHERE id = $1", sessionID, endTime)
	if err != nil {
		return fmt.Errorf("update session %d end: %w", sessionID, err)
	}
	return nil
}

// MarkSessionDeleted soft-deletes a session. A nil deletedAt stamps NOW().
func (s *Store) MarkSessionDeleted(ctx context.Context, sessionID int64, deletedAt *time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, "UPDATE sessions SET deleted_at = COALESCE($2, NOW()) WHERE id = $1", sessionID, deletedAt)
	if err != nil {
		return fmt.Errorf("mark session %d deleted: %w", sessionID, err)
	}
	return nil
}

// DeleteSession removes a session row. Log rows cascade to the session's
// partitions via the foreign key.
func (s *Store) DeleteSession(ctx context.Context, sessionID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err = pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", sessionID); err != nil {
		return fmt.Errorf("delete session %d: %w", sessionID, err)
	}
	return nil
}

// CleanupExpiredSessions hard-deletes soft-deleted sessions whose activity
// ended before the cutoff, returning the removed ids.
func (s *Store) CleanupExpiredSessions(ctx context.Context, before time.Time) ([]int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx,
		"DELETE FROM sessions WHERE COALESCE(end_time, start_time) < $1 AND deleted_at IS NOT NULL RETURNING id",
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("cleanup expired sessions: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	if len(ids) > 0 {
		s.log.Info().Int("count", len(ids)).Msg("Deleted expired sessions")
	}
	return ids, nil
}

const upsertCredentialQuery = `INSERT INTO credentials (id, guild_id, name, address, port, password, default_modifiers, autosession_enabled) ` +
	`VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ` +
	`ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address=EXCLUDED.address, port=EXCLUDED.port, ` +
	`password=EXCLUDED.password, default_modifiers=EXCLUDED.default_modifiers, autosession_enabled=EXCLUDED.autosession_enabled`

// UpsertCredential mirrors a credential row keyed on its primary-store id.
func (s *Store) UpsertCredential(ctx context.Context, rec models.CredentialSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, upsertCredentialQuery,
		rec.ID,
		rec.GuildID,
		rec.Name,
		rec.Address,
		rec.Port,
		rec.Password,
		rec.DefaultModifiers,
		rec.AutosessionEnabled,
	)
	if err != nil {
		return fmt.Errorf("upsert credential %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteCredential removes a credential row.
func (s *Store) DeleteCredential(ctx context.Context, credentialID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err = pool.Exec(ctx, "DELETE FROM credentials WHERE id = $1", credentialID); err != nil {
		return fmt.Errorf("delete credential %d: %w", credentialID, err)
	}
	return nil
}

const upsertAPIKeyQuery = `INSERT INTO hss_api_keys (id, guild_id, tag, key) VALUES ($1,$2,$3,$4) ` +
	`ON CONFLICT (id) DO UPDATE SET tag=EXCLUDED.tag, key=EXCLUDED.key`

// UpsertAPIKey mirrors an HSS api key row keyed on its primary-store id.
func (s *Store) UpsertAPIKey(ctx context.Context, rec models.APIKeySnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, upsertAPIKeyQuery, rec.ID, rec.GuildID, rec.Tag, rec.Key)
	if err != nil {
		return fmt.Errorf("upsert api key %d: %w", rec.ID, err)
	}
	return nil
}

// DeleteAPIKey removes an HSS api key row.
func (s *Store) DeleteAPIKey(ctx context.Context, apiKeyID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err = pool.Exec(ctx, "DELETE FROM hss_api_keys WHERE id = $1", apiKeyID); err != nil {
		return fmt.Errorf("delete api key %d: %w", apiKeyID, err)
	}
	return nil
}
