package user

import "time"

// User is the camelCase domain shape of a dashboard user. The remote API
// speaks snake_case; the apiclient package owns that mapping.
type User struct {
	ID        string     `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FirstName string     `json:"firstName" db:"first_name"`
	LastName  string     `json:"lastName" db:"last_name"`
	Avatar    string     `json:"avatar" db:"avatar"`
	CreatedAt *time.Time `json:"createdAt,omitempty" db:"-"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" db:"-"`
}

// Page is one page of a paginated list result.
type Page struct {
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	Total      int     `json:"total"`
	TotalPages int     `json:"totalPages"`
	Data       []*User `json:"data"`
}

// CreateUserRequest carries pre-sanitized input for a create. Validation
// happens before input reaches the data layer.
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

// UpdateUserRequest carries pre-sanitized input for an update. Nil fields
// are left untouched by the remote API.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// SyncStatus tracks whether a locally persisted record has been confirmed
// against the remote source of truth.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// Record is a user as persisted in the offline store: the entity plus
// bookkeeping for when it was cached and whether it is confirmed remotely.
type Record struct {
	User
	CachedAt   time.Time  `json:"cachedAt" db:"cached_at"`
	SyncStatus SyncStatus `json:"syncStatus" db:"sync_status"`
}

// NewRecord wraps a fetched or locally written user into a persistable record.
func NewRecord(u *User, status SyncStatus) *Record {
	return &Record{User: *u, CachedAt: time.Now(), SyncStatus: status}
}
