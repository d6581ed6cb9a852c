package ports

import (
	"context"

	"github.com/adminbridge/datakit/internal/core/domain/user"
)

// UserAPI is the remote source of truth for users. Implementations are thin
// transports: no caching, no retry policy, errors surface to the caller.
type UserAPI interface {
	List(ctx context.Context, page int) (*user.Page, error)
	Get(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	Update(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error)
	Delete(ctx context.Context, id string) error
}
