package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/beastgames/internal/beastgames"
)

// SQLiteStore keeps each profile as a JSONB document in the users table.
// The role is mirrored into its own column for filtering.
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
}

// NewSQLiteStore expects the schema from the migrations package.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, hub: newHub()}
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (beastgames.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM users WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return beastgames.Profile{}, ErrNotFound
	}
	if err != nil {
		return beastgames.Profile{}, err
	}
	return decodeProfile(id, []byte(data))
}

func (s *SQLiteStore) Set(ctx context.Context, p beastgames.Profile) error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, role, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET role = excluded.role, data = excluded.data`,
		p.ID, roleOrDefault(p.Role), string(data),
	)
	if err != nil {
		return err
	}
	s.hub.notify()
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch Patch) error {
	if err := s.update(ctx, s.db, id, patch); err != nil {
		return err
	}
	s.hub.notify()
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) update(ctx context.Context, db execer, id string, patch Patch) error {
	if len(patch) == 0 {
		return errors.New("empty patch")
	}

	// Paths are bound as parameters; only the nesting of calls is built here.
	expr := "data"
	var args []any
	var role *string
	for _, f := range patch {
		if f.Value == nil {
			expr = "jsonb_remove(" + expr + ", ?)"
			args = append(args, jsonPath(f.Path))
			continue
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", f.Path, err)
		}
		expr = "jsonb_set(" + expr + ", ?, json(?))"
		args = append(args, jsonPath(f.Path), string(v))
		if f.Path == beastgames.FieldRole {
			r := fmt.Sprint(f.Value)
			role = &r
		}
	}

	query := `UPDATE users SET data = ` + expr
	if role != nil {
		query += `, role = ?`
		args = append(args, *role)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	s.hub.notify()
	return nil
}

func (s *SQLiteStore) Batch(ctx context.Context, updates []BatchUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range updates {
		if err := s.update(ctx, tx, u.ID, u.Patch); err != nil {
			return fmt.Errorf("updating %s: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.hub.notify()
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]beastgames.Profile, error) {
	query := `SELECT id, json(data) FROM users`
	var args []any
	if q.ID != "" {
		query += ` WHERE id = ?`
		args = append(args, q.ID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []beastgames.Profile{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		p, err := decodeProfile(id, []byte(data))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	return s.hub.watch(ctx, q, s.Query)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op: the database handle belongs to the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

func jsonPath(path string) string {
	return "$." + strings.TrimPrefix(path, "$.")
}

func roleOrDefault(r beastgames.Role) string {
	if r == "" {
		return string(beastgames.RoleUser)
	}
	return string(r)
}

func decodeProfile(id string, data []byte) (beastgames.Profile, error) {
	var p beastgames.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return beastgames.Profile{}, fmt.Errorf("decoding profile %s: %w", id, err)
	}
	p.ID = id
	if p.Role == "" {
		p.Role = beastgames.RoleUser
	}
	return p, nil
}

var _ Store = (*SQLiteStore)(nil)
