package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adminbridge/datakit/internal/core/domain/outbox"
	"github.com/adminbridge/datakit/internal/core/domain/user"
	"github.com/adminbridge/datakit/internal/core/ports"
)

// UserAPIMock is a lightweight mock for ports.UserAPI. Unset functions
// return a not-found style error so tests fail loudly on unexpected calls.
type UserAPIMock struct {
	ListFn   func(ctx context.Context, page int) (*user.Page, error)
	GetFn    func(ctx context.Context, id string) (*user.User, error)
	CreateFn func(ctx context.Context, req *user.CreateUserRequest) (*user.User, error)
	UpdateFn func(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error)
	DeleteFn func(ctx context.Context, id string) error

	mu          sync.Mutex
	ListCalls   int
	GetCalls    int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

func (m *UserAPIMock) List(ctx context.Context, page int) (*user.Page, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(ctx, page)
	}
	return nil, fmt.Errorf("unexpected List call")
}

func (m *UserAPIMock) Get(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return nil, fmt.Errorf("unexpected Get call")
}

func (m *UserAPIMock) Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	return nil, fmt.Errorf("unexpected Create call")
}

func (m *UserAPIMock) Update(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error) {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	return nil, fmt.Errorf("unexpected Update call")
}

func (m *UserAPIMock) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.DeleteCalls++
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return fmt.Errorf("unexpected Delete call")
}

var _ ports.UserAPI = (*UserAPIMock)(nil)

// OfflineStoreFake is an in-memory ports.OfflineStore for gateway tests:
// same contract as the sqlite store, no database.
type OfflineStoreFake struct {
	mu     sync.Mutex
	users  map[string]*user.Record
	queue  []*outbox.WriteIntent
	meta   map[string]string
	nextID int64
}

func NewOfflineStoreFake() *OfflineStoreFake {
	return &OfflineStoreFake{
		users:  make(map[string]*user.Record),
		meta:   make(map[string]string),
		nextID: 1,
	}
}

func (f *OfflineStoreFake) GetAllUsers(ctx context.Context) []*user.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]*user.Record, 0, len(f.users))
	for _, rec := range f.users {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

func (f *OfflineStoreFake) GetUser(ctx context.Context, id string) *user.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *OfflineStoreFake) PutUser(ctx context.Context, rec *user.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[rec.ID] = rec
}

func (f *OfflineStoreFake) PutUsers(ctx context.Context, recs []*user.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range recs {
		f.users[rec.ID] = rec
	}
}

func (f *OfflineStoreFake) DeleteUser(ctx context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *OfflineStoreFake) ClearUsers(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = make(map[string]*user.Record)
}

func (f *OfflineStoreFake) Enqueue(ctx context.Context, intent *outbox.WriteIntent) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent.ID = f.nextID
	f.nextID++
	f.queue = append(f.queue, intent)
	return intent.ID
}

func (f *OfflineStoreFake) ListPending(ctx context.Context) []*outbox.WriteIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*outbox.WriteIntent, len(f.queue))
	copy(out, f.queue)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (f *OfflineStoreFake) RemoveFromQueue(ctx context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, intent := range f.queue {
		if intent.ID == id {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return
		}
	}
}

func (f *OfflineStoreFake) BumpRetry(ctx context.Context, id int64, lastError string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, intent := range f.queue {
		if intent.ID == id {
			intent.RetryCount++
			lastErr := lastError
			intent.LastError = &lastErr
			return
		}
	}
}

func (f *OfflineStoreFake) ClearQueue(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
}

func (f *OfflineStoreFake) GetMeta(ctx context.Context, key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.meta[key]
	return v, ok
}

func (f *OfflineStoreFake) SetMeta(ctx context.Context, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta[key] = value
}

func (f *OfflineStoreFake) ClearAll(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = make(map[string]*user.Record)
	f.queue = nil
	f.meta = make(map[string]string)
}

var _ ports.OfflineStore = (*OfflineStoreFake)(nil)
