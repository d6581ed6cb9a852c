// Package gateway composes the cache tiers, the offline store, the
// connectivity signal and the remote API into the single read/write surface
// view-models call.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/adminbridge/datakit/internal/core/domain/outbox"
	"github.com/adminbridge/datakit/internal/core/domain/user"
	"github.com/adminbridge/datakit/internal/core/ports"
	"github.com/adminbridge/datakit/internal/infrastructure/memcache"
	"github.com/adminbridge/datakit/internal/infrastructure/metrics"
)

const (
	entityTypeUsers = "users"
	listKeyPrefix   = "users:list:"
)

var listKeyPattern = regexp.MustCompile(`^users:list:`)

func listKey(page int) string  { return listKeyPrefix + strconv.Itoa(page) }
func userKey(id string) string { return "users:" + id }

// UserGateway implements ports.UserGateway. Reads walk the tiers fastest
// first and populate all of them on a remote hit; writes go to the remote
// API when online and to the write-intent queue when not. All collaborators
// are injected; the gateway owns no ambient state.
type UserGateway struct {
	hot    *memcache.Bounded[any]
	lru    *memcache.TimedLRU[any]
	store  ports.OfflineStore
	conn   ports.Connectivity
	api    ports.UserAPI
	logger *logrus.Logger

	// sf coalesces concurrent cache-miss fetches for the same key so a
	// stampede reaches the remote API once.
	sf singleflight.Group

	// tempSeq disambiguates temporary ids minted in the same millisecond.
	tempSeq atomic.Int64

	// now is swappable in tests
	now func() time.Time
}

// NewUserGateway wires a gateway from explicitly constructed tiers.
func NewUserGateway(
	hot *memcache.Bounded[any],
	lru *memcache.TimedLRU[any],
	store ports.OfflineStore,
	conn ports.Connectivity,
	api ports.UserAPI,
	logger *logrus.Logger,
) *UserGateway {
	return &UserGateway{
		hot:    hot,
		lru:    lru,
		store:  store,
		conn:   conn,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// GetList returns one page of users, trying the hot tier, the LRU tier, the
// offline store (when disconnected) and finally the remote API. A remote hit
// is written through every cache tier.
func (g *UserGateway) GetList(ctx context.Context, page int) (*user.Page, error) {
	key := listKey(page)

	if v, ok := g.hot.Get(key); ok {
		metrics.CacheHits.WithLabelValues("hot").Inc()
		return v.(*user.Page), nil
	}
	if v, ok := g.lru.Get(key); ok {
		metrics.CacheHits.WithLabelValues("lru").Inc()
		g.hot.Set(key, v)
		return v.(*user.Page), nil
	}

	if !g.conn.IsOnline() {
		if p := g.offlineList(ctx); p != nil {
			metrics.CacheHits.WithLabelValues("store").Inc()
			return p, nil
		}
		// Nothing cached locally; attempt the remote call anyway.
	}

	metrics.CacheMisses.Inc()
	v, err, _ := g.sf.Do(key, func() (any, error) {
		p, err := g.api.List(ctx, page)
		if err != nil {
			metrics.RemoteRequests.WithLabelValues("list", "error").Inc()
			return nil, err
		}
		metrics.RemoteRequests.WithLabelValues("list", "ok").Inc()
		g.hot.Set(key, p)
		g.lru.Set(key, p)
		g.persistPage(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*user.Page), nil
}

// GetByID returns a single user through the same tier walk as GetList.
func (g *UserGateway) GetByID(ctx context.Context, id string) (*user.User, error) {
	key := userKey(id)

	if v, ok := g.hot.Get(key); ok {
		metrics.CacheHits.WithLabelValues("hot").Inc()
		return v.(*user.User), nil
	}
	if v, ok := g.lru.Get(key); ok {
		metrics.CacheHits.WithLabelValues("lru").Inc()
		g.hot.Set(key, v)
		return v.(*user.User), nil
	}

	if !g.conn.IsOnline() {
		if rec := g.store.GetUser(ctx, id); rec != nil {
			metrics.CacheHits.WithLabelValues("store").Inc()
			u := rec.User
			return &u, nil
		}
	}

	metrics.CacheMisses.Inc()
	v, err, _ := g.sf.Do(key, func() (any, error) {
		u, err := g.api.Get(ctx, id)
		if err != nil {
			metrics.RemoteRequests.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		metrics.RemoteRequests.WithLabelValues("get", "ok").Inc()
		g.hot.Set(key, u)
		g.lru.Set(key, u)
		g.store.PutUser(ctx, user.NewRecord(u, user.SyncStatusSynced))
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*user.User), nil
}

// Create adds a user. Online it calls the remote API and invalidates list
// caches (page boundaries shifted); offline it queues a write intent under a
// temporary id and returns an optimistic result without touching the network.
func (g *UserGateway) Create(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if !g.conn.IsOnline() {
		now := g.now()
		tempID := fmt.Sprintf("temp_%d_%d", now.UnixMilli(), g.tempSeq.Add(1))
		optimistic := &user.User{
			ID:        tempID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Avatar:    req.Avatar,
			CreatedAt: &now,
		}
		g.enqueue(ctx, outbox.IntentCreate, tempID, req, now)
		g.store.PutUser(ctx, user.NewRecord(optimistic, user.SyncStatusPending))
		return optimistic, nil
	}

	u, err := g.api.Create(ctx, req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues("create", "error").Inc()
		return nil, err
	}
	metrics.RemoteRequests.WithLabelValues("create", "ok").Inc()
	g.InvalidateListCache()
	return u, nil
}

// Update modifies a user. Offline it queues the intent and echoes the input
// as an optimistic result layered over whatever record the store still has.
func (g *UserGateway) Update(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error) {
	if !g.conn.IsOnline() {
		now := g.now()
		optimistic := &user.User{ID: id, UpdatedAt: &now}
		if rec := g.store.GetUser(ctx, id); rec != nil {
			base := rec.User
			base.UpdatedAt = &now
			optimistic = &base
		}
		applyUpdate(optimistic, req)
		g.enqueue(ctx, outbox.IntentUpdate, id, req, now)
		g.store.PutUser(ctx, user.NewRecord(optimistic, user.SyncStatusPending))
		return optimistic, nil
	}

	u, err := g.api.Update(ctx, id, req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues("update", "error").Inc()
		return nil, err
	}
	metrics.RemoteRequests.WithLabelValues("update", "ok").Inc()
	g.evictUser(id)
	g.InvalidateListCache()
	return u, nil
}

// Delete removes a user. Offline it queues the intent and eagerly drops the
// entity from every local tier so subsequent offline reads reflect the
// deletion.
func (g *UserGateway) Delete(ctx context.Context, id string) error {
	if !g.conn.IsOnline() {
		g.enqueue(ctx, outbox.IntentDelete, id, nil, g.now())
		g.store.DeleteUser(ctx, id)
		g.evictUser(id)
		return nil
	}

	if err := g.api.Delete(ctx, id); err != nil {
		metrics.RemoteRequests.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.RemoteRequests.WithLabelValues("delete", "ok").Inc()
	g.evictUser(id)
	g.InvalidateListCache()
	return nil
}

// Prefetch warms the cache tiers for the given list pages. Pages are fetched
// concurrently; a failed page is logged and skipped, never aborting the rest.
func (g *UserGateway) Prefetch(ctx context.Context, pages []int) {
	var wg sync.WaitGroup
	for _, page := range pages {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			if _, err := g.GetList(ctx, page); err != nil && g.logger != nil {
				g.logger.WithField("page", page).WithError(err).Debug("gateway: prefetch page failed")
			}
		}(page)
	}
	wg.Wait()
}

// InvalidateListCache drops every cached list page from both in-memory tiers.
func (g *UserGateway) InvalidateListCache() {
	removed := g.lru.DeletePattern(listKeyPattern)
	for _, key := range g.hot.Keys() {
		if strings.HasPrefix(key, listKeyPrefix) {
			g.hot.Delete(key)
			removed++
		}
	}
	if g.logger != nil && removed > 0 {
		g.logger.WithField("removed", removed).Debug("gateway: list cache invalidated")
	}
}

// ClearAllCaches empties both in-memory tiers and the store's record table.
// The write-intent queue survives; clear it through the store if needed.
func (g *UserGateway) ClearAllCaches(ctx context.Context) {
	g.hot.Clear()
	g.lru.Clear()
	g.store.ClearUsers(ctx)
}

func (g *UserGateway) evictUser(id string) {
	key := userKey(id)
	g.hot.Delete(key)
	g.lru.Delete(key)
}

func (g *UserGateway) enqueue(ctx context.Context, typ outbox.IntentType, entityID string, payload any, createdAt time.Time) {
	var raw json.RawMessage
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			if g.logger != nil {
				g.logger.WithError(err).Warn("gateway: failed to encode intent payload")
			}
		} else {
			raw = buf
		}
	}
	intent := &outbox.WriteIntent{
		Type:       typ,
		EntityType: entityTypeUsers,
		EntityID:   entityID,
		Payload:    raw,
		CreatedAt:  createdAt,
	}
	g.store.Enqueue(ctx, intent)
	metrics.QueuedWrites.WithLabelValues(string(typ)).Inc()
	if g.logger != nil {
		g.logger.WithFields(logrus.Fields{
			"type":      typ,
			"entity_id": entityID,
		}).Info("gateway: mutation queued offline")
	}
}

// offlineList synthesizes a single-page result from everything the store has
// cached. Returns nil when the store is empty so the caller can still make a
// degraded remote attempt.
func (g *UserGateway) offlineList(ctx context.Context) *user.Page {
	recs := g.store.GetAllUsers(ctx)
	if len(recs) == 0 {
		return nil
	}
	data := make([]*user.User, 0, len(recs))
	for _, rec := range recs {
		u := rec.User
		data = append(data, &u)
	}
	return &user.Page{
		Page:       1,
		PerPage:    len(data),
		Total:      len(data),
		TotalPages: 1,
		Data:       data,
	}
}

func (g *UserGateway) persistPage(ctx context.Context, p *user.Page) {
	recs := make([]*user.Record, 0, len(p.Data))
	for _, u := range p.Data {
		recs = append(recs, user.NewRecord(u, user.SyncStatusSynced))
	}
	g.store.PutUsers(ctx, recs)
}

func applyUpdate(u *user.User, req *user.UpdateUserRequest) {
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}
}

var _ ports.UserGateway = (*UserGateway)(nil)
