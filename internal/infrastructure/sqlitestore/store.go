package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adminbridge/datakit/internal/core/domain/outbox"
	"github.com/adminbridge/datakit/internal/core/domain/user"
	"github.com/adminbridge/datakit/internal/core/ports"
)

// Store implements ports.OfflineStore. The exported methods wrap unexported
// fallible ones and collapse any error to a default value, keeping the
// never-propagates contract in one visible place.
type Store struct {
	db     *Database
	logger *logrus.Logger
}

// NewStore creates the offline store on an opened, migrated database.
func NewStore(database *Database, logger *logrus.Logger) ports.OfflineStore {
	return &Store{db: database, logger: logger}
}

func (s *Store) absorb(op string, err error) {
	if err == nil {
		return
	}
	if s.logger != nil {
		s.logger.WithField("op", op).WithError(err).Warn("store: operation degraded")
	}
}

// row types keep sqlx scanning away from time.Time; timestamps are stored
// as unix milliseconds.

type userRow struct {
	ID         string `db:"id"`
	Email      string `db:"email"`
	FirstName  string `db:"first_name"`
	LastName   string `db:"last_name"`
	Avatar     string `db:"avatar"`
	CachedAt   int64  `db:"cached_at"`
	SyncStatus string `db:"sync_status"`
}

func (r *userRow) record() *user.Record {
	return &user.Record{
		User: user.User{
			ID:        r.ID,
			Email:     r.Email,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Avatar:    r.Avatar,
		},
		CachedAt:   time.UnixMilli(r.CachedAt),
		SyncStatus: user.SyncStatus(r.SyncStatus),
	}
}

type intentRow struct {
	ID         int64          `db:"id"`
	Type       string         `db:"type"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	Payload    sql.NullString `db:"payload"`
	CreatedAt  int64          `db:"created_at"`
	RetryCount int            `db:"retry_count"`
	LastError  sql.NullString `db:"last_error"`
}

func (r *intentRow) intent() *outbox.WriteIntent {
	w := &outbox.WriteIntent{
		ID:         r.ID,
		Type:       outbox.IntentType(r.Type),
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		CreatedAt:  time.UnixMilli(r.CreatedAt),
		RetryCount: r.RetryCount,
	}
	if r.Payload.Valid {
		w.Payload = []byte(r.Payload.String)
	}
	if r.LastError.Valid {
		lastErr := r.LastError.String
		w.LastError = &lastErr
	}
	return w
}

// GetAllUsers returns every cached user record, or an empty slice on failure.
func (s *Store) GetAllUsers(ctx context.Context) []*user.Record {
	recs, err := s.getAllUsers(ctx)
	if err != nil {
		s.absorb("get_all_users", err)
		return []*user.Record{}
	}
	return recs
}

func (s *Store) getAllUsers(ctx context.Context) ([]*user.Record, error) {
	var rows []userRow
	query := `SELECT id, email, first_name, last_name, avatar, cached_at, sync_status FROM user_records ORDER BY cached_at DESC`
	if err := s.db.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	recs := make([]*user.Record, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].record())
	}
	return recs, nil
}

// GetUser returns the cached record for id, or nil if absent or on failure.
func (s *Store) GetUser(ctx context.Context, id string) *user.Record {
	rec, err := s.getUser(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.absorb("get_user", err)
		}
		return nil
	}
	return rec
}

func (s *Store) getUser(ctx context.Context, id string) (*user.Record, error) {
	var row userRow
	query := `SELECT id, email, first_name, last_name, avatar, cached_at, sync_status FROM user_records WHERE id = ?`
	if err := s.db.DB.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.record(), nil
}

// PutUser upserts one record; at most one record exists per user id.
func (s *Store) PutUser(ctx context.Context, rec *user.Record) {
	s.absorb("put_user", s.putUser(ctx, rec))
}

func (s *Store) putUser(ctx context.Context, rec *user.Record) error {
	query := `
		INSERT INTO user_records (id, email, first_name, last_name, avatar, cached_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email, first_name = excluded.first_name,
			last_name = excluded.last_name, avatar = excluded.avatar,
			cached_at = excluded.cached_at, sync_status = excluded.sync_status`
	_, err := s.db.DB.ExecContext(ctx, query,
		rec.ID, rec.Email, rec.FirstName, rec.LastName, rec.Avatar,
		rec.CachedAt.UnixMilli(), string(rec.SyncStatus))
	return err
}

// PutUsers upserts a batch of records in one transaction.
func (s *Store) PutUsers(ctx context.Context, recs []*user.Record) {
	s.absorb("put_users", s.putUsers(ctx, recs))
}

func (s *Store) putUsers(ctx context.Context, recs []*user.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	query := `
		INSERT INTO user_records (id, email, first_name, last_name, avatar, cached_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email, first_name = excluded.first_name,
			last_name = excluded.last_name, avatar = excluded.avatar,
			cached_at = excluded.cached_at, sync_status = excluded.sync_status`
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, rec.Email, rec.FirstName, rec.LastName, rec.Avatar,
			rec.CachedAt.UnixMilli(), string(rec.SyncStatus)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteUser removes the record for id; absence is not an error.
func (s *Store) DeleteUser(ctx context.Context, id string) {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM user_records WHERE id = ?`, id)
	s.absorb("delete_user", err)
}

// ClearUsers empties the record table.
func (s *Store) ClearUsers(ctx context.Context) {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM user_records`)
	s.absorb("clear_users", err)
}

// Enqueue appends a write intent and returns its assigned id, or 0 on failure.
func (s *Store) Enqueue(ctx context.Context, intent *outbox.WriteIntent) int64 {
	id, err := s.enqueue(ctx, intent)
	if err != nil {
		s.absorb("enqueue", err)
		return 0
	}
	intent.ID = id
	return id
}

func (s *Store) enqueue(ctx context.Context, intent *outbox.WriteIntent) (int64, error) {
	createdAt := intent.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var payload any
	if len(intent.Payload) > 0 {
		payload = string(intent.Payload)
	}
	query := `
		INSERT INTO write_intents (type, entity_type, entity_id, payload, created_at, retry_count, last_error)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`
	res, err := s.db.DB.ExecContext(ctx, query,
		string(intent.Type), intent.EntityType, intent.EntityID, payload,
		createdAt.UnixMilli(), intent.RetryCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPending returns all queued intents oldest-first, or an empty slice on
// failure.
func (s *Store) ListPending(ctx context.Context) []*outbox.WriteIntent {
	intents, err := s.listPending(ctx)
	if err != nil {
		s.absorb("list_pending", err)
		return []*outbox.WriteIntent{}
	}
	return intents
}

func (s *Store) listPending(ctx context.Context) ([]*outbox.WriteIntent, error) {
	var rows []intentRow
	query := `
		SELECT id, type, entity_type, entity_id, payload, created_at, retry_count, last_error
		FROM write_intents ORDER BY created_at ASC, id ASC`
	if err := s.db.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	intents := make([]*outbox.WriteIntent, 0, len(rows))
	for i := range rows {
		intents = append(intents, rows[i].intent())
	}
	return intents, nil
}

// RemoveFromQueue deletes a replayed intent; absence is not an error.
func (s *Store) RemoveFromQueue(ctx context.Context, id int64) {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM write_intents WHERE id = ?`, id)
	s.absorb("remove_from_queue", err)
}

// BumpRetry increments the retry counter and records the failure for a
// queued intent. No-op if the id is absent.
func (s *Store) BumpRetry(ctx context.Context, id int64, lastError string) {
	query := `UPDATE write_intents SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`
	_, err := s.db.DB.ExecContext(ctx, query, lastError, id)
	s.absorb("bump_retry", err)
}

// ClearQueue drops every queued intent.
func (s *Store) ClearQueue(ctx context.Context) {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM write_intents`)
	s.absorb("clear_queue", err)
}

// GetMeta returns the metadata value for key. ok=false if absent or on failure.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool) {
	var value string
	err := s.db.DB.GetContext(ctx, &value, `SELECT value FROM metadata WHERE key = ?`, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.absorb("get_meta", err)
		}
		return "", false
	}
	return value, true
}

// SetMeta upserts a metadata value, last-write-wins.
func (s *Store) SetMeta(ctx context.Context, key, value string) {
	query := `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := s.db.DB.ExecContext(ctx, query, key, value, time.Now().UnixMilli())
	s.absorb("set_meta", err)
}

// ClearAll empties all three tables. Used for full reset / logout.
func (s *Store) ClearAll(ctx context.Context) {
	s.absorb("clear_all", s.clearAll(ctx))
}

func (s *Store) clearAll(ctx context.Context) error {
	tx, err := s.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"user_records", "write_intents", "metadata"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ ports.OfflineStore = (*Store)(nil)
