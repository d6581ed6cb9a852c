package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminbridge/datakit/internal/core/domain/outbox"
	"github.com/adminbridge/datakit/internal/core/domain/user"
	"github.com/adminbridge/datakit/internal/infrastructure/connectivity"
	"github.com/adminbridge/datakit/internal/infrastructure/memcache"
	"github.com/adminbridge/datakit/test/mocks"
)

type fixture struct {
	gw      *UserGateway
	hot     *memcache.Bounded[any]
	lru     *memcache.TimedLRU[any]
	store   *mocks.OfflineStoreFake
	monitor *connectivity.Monitor
	api     *mocks.UserAPIMock
}

func newFixture(online bool) *fixture {
	hot := memcache.NewBounded[any](50)
	lru := memcache.NewTimedLRU[any](100, 5*time.Minute)
	store := mocks.NewOfflineStoreFake()
	monitor := connectivity.NewMonitor(online, nil)
	api := &mocks.UserAPIMock{}
	return &fixture{
		gw:      NewUserGateway(hot, lru, store, monitor, api, nil),
		hot:     hot,
		lru:     lru,
		store:   store,
		monitor: monitor,
		api:     api,
	}
}

func sampleUser(id string) *user.User {
	return &user.User{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: "First" + id,
		LastName:  "Last" + id,
		Avatar:    "https://example.com/" + id + ".jpg",
	}
}

func samplePage(page int, ids ...string) *user.Page {
	data := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		data = append(data, sampleUser(id))
	}
	return &user.Page{Page: page, PerPage: len(ids), Total: len(ids), TotalPages: 2, Data: data}
}

func TestGetByID_ReadThroughPopulation(t *testing.T) {
	f := newFixture(true)
	f.api.GetFn = func(ctx context.Context, id string) (*user.User, error) { return sampleUser(id), nil }
	ctx := context.Background()

	u, err := f.gw.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1@example.com", u.Email)
	assert.Equal(t, 1, f.api.GetCalls, "cold cache calls the API exactly once")

	// Populated every tier.
	assert.True(t, f.hot.Has("users:1"))
	assert.True(t, f.lru.Has("users:1"))
	require.NotNil(t, f.store.GetUser(ctx, "1"))
	assert.Equal(t, user.SyncStatusSynced, f.store.GetUser(ctx, "1").SyncStatus)

	// Second read is served from the hot tier.
	_, err = f.gw.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.GetCalls, "second read must not hit the API")
}

func TestGetByID_PromotesFromLRU(t *testing.T) {
	f := newFixture(true)
	f.lru.Set("users:1", sampleUser("1"))
	require.False(t, f.hot.Has("users:1"))

	u, err := f.gw.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, 0, f.api.GetCalls)
	assert.True(t, f.hot.Has("users:1"), "LRU hit promoted into the hot tier")
}

func TestGetList_WritesThroughAllTiers(t *testing.T) {
	f := newFixture(true)
	f.api.ListFn = func(ctx context.Context, page int) (*user.Page, error) { return samplePage(page, "1", "2"), nil }
	ctx := context.Background()

	p, err := f.gw.GetList(ctx, 1)
	require.NoError(t, err)
	require.Len(t, p.Data, 2)

	assert.True(t, f.hot.Has("users:list:1"))
	assert.True(t, f.lru.Has("users:list:1"))
	assert.Len(t, f.store.GetAllUsers(ctx), 2)

	_, err = f.gw.GetList(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.ListCalls)
}

func TestGetList_OfflineSynthesizesSinglePage(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.store.PutUsers(ctx, []*user.Record{
		user.NewRecord(sampleUser("1"), user.SyncStatusSynced),
		user.NewRecord(sampleUser("2"), user.SyncStatusSynced),
		user.NewRecord(sampleUser("3"), user.SyncStatusSynced),
	})

	p, err := f.gw.GetList(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page, "offline result is a single synthetic page")
	assert.Equal(t, 1, p.TotalPages)
	assert.Len(t, p.Data, 3)
	assert.Equal(t, 0, f.api.ListCalls)
}

func TestGetList_OfflineEmptyStoreStillTriesRemote(t *testing.T) {
	f := newFixture(false)
	f.api.ListFn = func(ctx context.Context, page int) (*user.Page, error) { return samplePage(page, "1"), nil }

	p, err := f.gw.GetList(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, p.Data, 1)
	assert.Equal(t, 1, f.api.ListCalls, "degraded attempt reaches the API")
}

func TestGetByID_RemoteFailurePropagatesWhileOnline(t *testing.T) {
	f := newFixture(true)
	wantErr := errors.New("boom")
	f.api.GetFn = func(ctx context.Context, id string) (*user.User, error) { return nil, wantErr }

	// Even with an offline-store record available there is no silent
	// fallback once the gateway commits to the remote tier.
	f.store.PutUser(context.Background(), user.NewRecord(sampleUser("1"), user.SyncStatusSynced))

	_, err := f.gw.GetByID(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestCreate_OfflineQueuesIntent(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	u, err := f.gw.Create(ctx, &user.CreateUserRequest{Email: "neo@example.com", FirstName: "Neo", LastName: "Anderson"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u.ID, "temp_"), "optimistic result carries a temporary id")
	assert.Equal(t, "neo@example.com", u.Email)
	require.NotNil(t, u.CreatedAt)
	assert.Equal(t, 0, f.api.CreateCalls, "offline create must not contact the API")

	pending := f.store.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.IntentCreate, pending[0].Type)
	assert.Equal(t, "users", pending[0].EntityType)
	assert.Equal(t, u.ID, pending[0].EntityID)
	assert.Zero(t, pending[0].RetryCount)

	// The optimistic record lands in the store as pending.
	rec := f.store.GetUser(ctx, u.ID)
	require.NotNil(t, rec)
	assert.Equal(t, user.SyncStatusPending, rec.SyncStatus)

	// Replay is external: once the replayer removes the intent it stays gone
	// even after connectivity returns.
	f.monitor.MarkOnline()
	f.store.RemoveFromQueue(ctx, pending[0].ID)
	assert.Empty(t, f.store.ListPending(ctx), "removed intent must not reappear")
}

func TestUpdate_OfflineOptimisticEcho(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.store.PutUser(ctx, user.NewRecord(sampleUser("7"), user.SyncStatusSynced))

	first := "Trinity"
	u, err := f.gw.Update(ctx, "7", &user.UpdateUserRequest{FirstName: &first})
	require.NoError(t, err)

	assert.Equal(t, "Trinity", u.FirstName)
	assert.Equal(t, "Last7", u.LastName, "unchanged fields come from the stored record")
	require.NotNil(t, u.UpdatedAt)
	assert.Equal(t, 0, f.api.UpdateCalls)

	pending := f.store.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.IntentUpdate, pending[0].Type)
	assert.Equal(t, user.SyncStatusPending, f.store.GetUser(ctx, "7").SyncStatus)
}

func TestDelete_OfflineEagerlyRemovesRecord(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.store.PutUser(ctx, user.NewRecord(sampleUser("7"), user.SyncStatusSynced))
	f.hot.Set("users:7", sampleUser("7"))

	require.NoError(t, f.gw.Delete(ctx, "7"))

	assert.Equal(t, 0, f.api.DeleteCalls)
	assert.Nil(t, f.store.GetUser(ctx, "7"), "offline reads must reflect the deletion")
	assert.False(t, f.hot.Has("users:7"))

	pending := f.store.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.IntentDelete, pending[0].Type)
}

func TestUpdate_OnlineInvalidatesCaches(t *testing.T) {
	f := newFixture(true)
	f.api.GetFn = func(ctx context.Context, id string) (*user.User, error) { return sampleUser(id), nil }
	f.api.ListFn = func(ctx context.Context, page int) (*user.Page, error) { return samplePage(page, "1", "2"), nil }
	f.api.UpdateFn = func(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error) {
		u := sampleUser(id)
		u.FirstName = *req.FirstName
		return u, nil
	}
	ctx := context.Background()

	_, err := f.gw.GetByID(ctx, "1")
	require.NoError(t, err)
	_, err = f.gw.GetList(ctx, 1)
	require.NoError(t, err)
	require.True(t, f.hot.Has("users:1"))
	require.True(t, f.hot.Has("users:list:1"))

	first := "Changed"
	_, err = f.gw.Update(ctx, "1", &user.UpdateUserRequest{FirstName: &first})
	require.NoError(t, err)

	assert.False(t, f.hot.Has("users:1"), "entity key evicted from hot tier")
	assert.False(t, f.lru.Has("users:1"), "entity key evicted from LRU tier")
	assert.False(t, f.hot.Has("users:list:1"), "list keys invalidated")
	assert.False(t, f.lru.Has("users:list:1"))
}

func TestCreate_OnlineInvalidatesListCachesOnly(t *testing.T) {
	f := newFixture(true)
	f.api.GetFn = func(ctx context.Context, id string) (*user.User, error) { return sampleUser(id), nil }
	f.api.ListFn = func(ctx context.Context, page int) (*user.Page, error) { return samplePage(page, "1"), nil }
	f.api.CreateFn = func(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
		u := sampleUser("101")
		u.Email = req.Email
		return u, nil
	}
	ctx := context.Background()

	_, err := f.gw.GetByID(ctx, "1")
	require.NoError(t, err)
	_, err = f.gw.GetList(ctx, 1)
	require.NoError(t, err)

	u, err := f.gw.Create(ctx, &user.CreateUserRequest{Email: "new@example.com", FirstName: "New", LastName: "User"})
	require.NoError(t, err)
	assert.Equal(t, "101", u.ID)
	assert.Empty(t, f.store.ListPending(ctx), "online create never queues")

	assert.False(t, f.hot.Has("users:list:1"), "page boundaries shifted, lists are stale")
	assert.False(t, f.lru.Has("users:list:1"))
	assert.True(t, f.hot.Has("users:1"), "single-entity entries survive a create")
}

func TestDelete_OnlineFailurePropagatesWithoutQueueing(t *testing.T) {
	f := newFixture(true)
	wantErr := errors.New("remote rejected")
	f.api.DeleteFn = func(ctx context.Context, id string) error { return wantErr }

	err := f.gw.Delete(context.Background(), "7")
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, f.store.ListPending(context.Background()), "the queue is an offline-only mechanism")
}

func TestPrefetch_WarmsPagesAndToleratesFailures(t *testing.T) {
	f := newFixture(true)
	f.api.ListFn = func(ctx context.Context, page int) (*user.Page, error) {
		if page == 2 {
			return nil, fmt.Errorf("page %d unavailable", page)
		}
		return samplePage(page, fmt.Sprintf("%d", page*10)), nil
	}

	f.gw.Prefetch(context.Background(), []int{1, 2, 3})

	assert.True(t, f.hot.Has("users:list:1"))
	assert.False(t, f.hot.Has("users:list:2"), "failed page simply stays cold")
	assert.True(t, f.hot.Has("users:list:3"))
}

func TestInvalidateListCache_LeavesEntityKeys(t *testing.T) {
	f := newFixture(true)
	f.hot.Set("users:list:1", samplePage(1, "1"))
	f.hot.Set("users:7", sampleUser("7"))
	f.lru.Set("users:list:2", samplePage(2, "2"))
	f.lru.Set("users:7", sampleUser("7"))

	f.gw.InvalidateListCache()

	assert.False(t, f.hot.Has("users:list:1"))
	assert.False(t, f.lru.Has("users:list:2"))
	assert.True(t, f.hot.Has("users:7"))
	assert.True(t, f.lru.Has("users:7"))
}

func TestClearAllCaches_IdempotentAndSparesQueue(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.gw.Create(ctx, &user.CreateUserRequest{Email: "a@example.com", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	f.hot.Set("users:list:1", samplePage(1, "1"))
	f.lru.Set("users:1", sampleUser("1"))

	f.gw.ClearAllCaches(ctx)
	assert.Equal(t, 0, f.hot.Size())
	assert.Equal(t, 0, f.lru.Size())
	assert.Empty(t, f.store.GetAllUsers(ctx))
	assert.Len(t, f.store.ListPending(ctx), 1, "the write-intent queue survives a cache clear")

	// Second clear is a no-op with the same end state.
	f.gw.ClearAllCaches(ctx)
	assert.Equal(t, 0, f.hot.Size())
	assert.Equal(t, 0, f.lru.Size())
	assert.Empty(t, f.store.GetAllUsers(ctx))
	assert.Len(t, f.store.ListPending(ctx), 1)
}

func TestGetByID_CoalescesConcurrentMisses(t *testing.T) {
	f := newFixture(true)
	release := make(chan struct{})
	f.api.GetFn = func(ctx context.Context, id string) (*user.User, error) {
		<-release
		return sampleUser(id), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*user.User, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.gw.GetByID(context.Background(), "1")
		}(i)
	}

	// Let every caller reach the in-flight fetch before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, f.api.GetCalls, "concurrent misses for one key share a single remote call")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "1@example.com", results[i].Email)
	}
}

func TestCreate_OfflineSameMillisecondIDsStayDistinct(t *testing.T) {
	f := newFixture(false)
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.gw.now = func() time.Time { return frozen }
	ctx := context.Background()

	u1, err := f.gw.Create(ctx, &user.CreateUserRequest{Email: "a@example.com", FirstName: "A", LastName: "A"})
	require.NoError(t, err)
	u2, err := f.gw.Create(ctx, &user.CreateUserRequest{Email: "b@example.com", FirstName: "B", LastName: "B"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u1.ID, "temp_"))
	assert.NotEqual(t, u1.ID, u2.ID, "same-millisecond creates mint distinct temporary ids")
	assert.Len(t, f.store.GetAllUsers(ctx), 2, "both pending records survive in the store")
	assert.Len(t, f.store.ListPending(ctx), 2)
}

func TestGetByID_OfflineServedFromStore(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.store.PutUser(ctx, user.NewRecord(sampleUser("7"), user.SyncStatusSynced))

	u, err := f.gw.GetByID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "7@example.com", u.Email)
	assert.Equal(t, 0, f.api.GetCalls)
}
