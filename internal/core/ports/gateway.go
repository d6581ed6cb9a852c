package ports

import (
	"context"

	"github.com/adminbridge/datakit/internal/core/domain/user"
)

// UserGateway is the single read/write API view-models call. It composes the
// in-memory cache tiers, the offline store and the remote API into one
// surface, and redirects mutations to the write-intent queue while offline.
type UserGateway interface {
	GetList(ctx context.Context, page int) (*user.Page, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	Update(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error)
	Delete(ctx context.Context, id string) error

	// Prefetch warms the cache tiers for the given list pages. Page fetches
	// run concurrently and failures are ignored per page.
	Prefetch(ctx context.Context, pages []int)

	// InvalidateListCache drops every cached list page from the in-memory tiers.
	InvalidateListCache()
	// ClearAllCaches empties both in-memory tiers and the store's record
	// table. The write-intent queue is untouched; clear it separately.
	ClearAllCaches(ctx context.Context)
}
