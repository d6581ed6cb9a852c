package ports

import (
	"context"

	"github.com/adminbridge/datakit/internal/core/domain/outbox"
	"github.com/adminbridge/datakit/internal/core/domain/user"
)

// OfflineStore is the durable fallback tier: cached user records, the
// write-intent queue and a small metadata table. It is best-effort by
// contract: every method absorbs storage failures internally and degrades
// to an empty result or a no-op, so callers never see an error from it.
type OfflineStore interface {
	// User records. At most one record per user id.
	GetAllUsers(ctx context.Context) []*user.Record
	GetUser(ctx context.Context, id string) *user.Record
	PutUser(ctx context.Context, rec *user.Record)
	PutUsers(ctx context.Context, recs []*user.Record)
	DeleteUser(ctx context.Context, id string)
	ClearUsers(ctx context.Context)

	// Write-intent queue, FIFO by creation time.
	Enqueue(ctx context.Context, intent *outbox.WriteIntent) int64
	ListPending(ctx context.Context) []*outbox.WriteIntent
	RemoveFromQueue(ctx context.Context, id int64)
	BumpRetry(ctx context.Context, id int64, lastError string)
	ClearQueue(ctx context.Context)

	// Metadata, last-write-wins.
	GetMeta(ctx context.Context, key string) (string, bool)
	SetMeta(ctx context.Context, key, value string)

	// ClearAll empties all three tables. Used for full reset / logout.
	ClearAll(ctx context.Context)
}
