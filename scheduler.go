package sessionmirror

import (
	"context"
	"fmt"
	"time"

	"github.com/hllutils/sessionmirror/pkg/models"
)

// schedule turns one unit of work into an independent background task. The
// caller returns immediately and never observes the outcome. No-op while
// replication is disabled or draining.
func (r *Runtime) schedule(unit func(context.Context) error, label string) {
	if !r.Enabled() {
		return
	}
	r.track(label, func() {
		r.runWithRetry(r.baseCtx, unit, label)
	})
}

// ReplicateSession mirrors a session snapshot into the secondary store.
func (r *Runtime) ReplicateSession(rec models.SessionSnapshot) {
	r.schedule(func(ctx context.Context) error {
		return r.store.UpsertSession(ctx, rec)
	}, fmt.Sprintf("pg-session-%d", rec.SessionID))
}

// ReplicateSessionDeletion removes a session from the secondary store.
func (r *Runtime) ReplicateSessionDeletion(sessionID int64) {
	r.schedule(func(ctx context.Context) error {
		return r.store.DeleteSession(ctx, sessionID)
	}, fmt.Sprintf("pg-session-delete-%d", sessionID))
}

// ReplicateSessionSoftDeletion marks a session deleted in the secondary
// store. A nil deletedAt lets the store stamp the current time.
func (r *Runtime) ReplicateSessionSoftDeletion(sessionID int64, deletedAt *time.Time) {
	r.schedule(func(ctx context.Context) error {
		return r.store.MarkSessionDeleted(ctx, sessionID, deletedAt)
	}, fmt.Sprintf("pg-session-mark-deleted-%d", sessionID))
}

// ReplicateSessionLogs mirrors a log batch, provisioning any missing
// monthly partitions first. The batch is deep-copied so later mutation of
// the caller's slice cannot leak into the write.
func (r *Runtime) ReplicateSessionLogs(sessionID int64, logs []models.LogLine) {
	if len(logs) == 0 {
		return
	}
	payload := models.CloneLogs(logs)
	r.schedule(func(ctx context.Context) error {
		if err := r.ensureLogPartitions(ctx, payload); err != nil {
			return err
		}
		return r.store.InsertLogs(ctx, sessionID, payload)
	}, fmt.Sprintf("pg-session-logs-%d", sessionID))
}

// PurgeSessionLogs deletes all of a session's logs from the secondary store.
func (r *Runtime) PurgeSessionLogs(sessionID int64) {
	r.schedule(func(ctx context.Context) error {
		deleted, err := r.store.PurgeSessionLogs(ctx, sessionID)
		if err != nil {
			return err
		}
		r.log.Info().
			Int64("rows", deleted).
			Int64("session_id", sessionID).
			Msg("Purged session logs")
		return nil
	}, fmt.Sprintf("pg-session-log-purge-%d", sessionID))
}

// ReplicateCredentials mirrors a credential snapshot.
func (r *Runtime) ReplicateCredentials(rec models.CredentialSnapshot) {
	r.schedule(func(ctx context.Context) error {
		return r.store.UpsertCredential(ctx, rec)
	}, fmt.Sprintf("pg-credentials-%d", rec.ID))
}

// DeleteCredentials removes a credential from the secondary store.
func (r *Runtime) DeleteCredentials(credentialID int64) {
	r.schedule(func(ctx context.Context) error {
		return r.store.DeleteCredential(ctx, credentialID)
	}, fmt.Sprintf("pg-credentials-delete-%d", credentialID))
}

// ReplicateAPIKey mirrors an api-key snapshot.
func (r *Runtime) ReplicateAPIKey(rec models.APIKeySnapshot) {
	r.schedule(func(ctx context.Context) error {
		return r.store.UpsertAPIKey(ctx, rec)
	}, fmt.Sprintf("pg-api-key-%d", rec.ID))
}

// DeleteAPIKey removes an api key from the secondary store.
func (r *Runtime) DeleteAPIKey(apiKeyID int64) {
	r.schedule(func(ctx context.Context) error {
		return r.store.DeleteAPIKey(ctx, apiKeyID)
	}, fmt.Sprintf("pg-api-key-delete-%d", apiKeyID))
}
