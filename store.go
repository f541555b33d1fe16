package sessionmirror

import (
	"context"
	"time"

	"github.com/hllutils/sessionmirror/pkg/models"
)

// Store is the secondary-store client the runtime replicates into. Every
// write is idempotent: upserts key on the primary store's own identifiers
// and partition creation is a create-if-not-exists, so at-least-once
// delivery converges on the same state.
//
// Implementations must be safe for concurrent use. While the pool is not
// established every operation must fail with a distinct readiness error;
// the runtime treats any failure in that window as wait-for-ready rather
// than a retryable operation failure.
type Store interface {
	// Connect establishes the connection pool. Idempotent.
	Connect(ctx context.Context) error
	// Close tears down the pool. Safe to call when never connected.
	Close(ctx context.Context) error
	// Connected reports whether the pool is currently established.
	Connected() bool

	UpsertSession(ctx context.Context, rec models.SessionSnapshot) error
	UpsertCredential(ctx context.Context, rec models.CredentialSnapshot) error
	UpsertAPIKey(ctx context.Context, rec models.APIKeySnapshot) error

	// InsertLogs bulk-appends a batch in original order. Every distinct
	// month present in the batch must have been provisioned through
	// CreatePartition first.
	InsertLogs(ctx context.Context, sessionID int64, logs []models.LogLine) error
	// CreatePartition idempotently provisions the monthly log partition
	// covering monthStart. Concurrent calls for the same month are fine.
	CreatePartition(ctx context.Context, monthStart time.Time) error

	DeleteSession(ctx context.Context, sessionID int64) error
	MarkSessionDeleted(ctx context.Context, sessionID int64, deletedAt *time.Time) error
	DeleteCredential(ctx context.Context, credentialID int64) error
	DeleteAPIKey(ctx context.Context, apiKeyID int64) error
	// PurgeSessionLogs deletes all log rows for a session and reports the
	// affected row count.
	PurgeSessionLogs(ctx context.Context, sessionID int64) (int64, error)
}
