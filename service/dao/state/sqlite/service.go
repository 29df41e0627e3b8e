// Package sqlite persists allocator states in a SQLite database. Scalars live
// in one header row per allocator; pool slots, holdings and nonces are rows
// of their own, so a delta touches only the rows it changes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
	"github.com/viant/idmint/service/dao/criteria"
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/dao/state/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Service is a SQLite-backed state.Service.
type Service struct {
	db *sql.DB
}

var _ state.Service = (*Service)(nil)

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Service, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Service{db: db}, nil
}

// Close closes the database handle.
func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces every row of the state when its version advances the stored one.
func (s *Service) Save(ctx context.Context, snapshot *model.State) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if snapshot.Name == "" {
		return dao.ErrInvalidID
	}
	header, err := encodeHeader(snapshot)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", snapshot.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored uint64
	nextSeq := 0
	for _, ids := range snapshot.Holdings {
		nextSeq += len(ids)
	}
	err = tx.QueryRowContext(ctx, `SELECT version FROM allocator_state WHERE name = ?`, snapshot.Name).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO allocator_state (name, strategy, version, header, pool_size, next_seq, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snapshot.Name, string(snapshot.Strategy), snapshot.Version, header, len(snapshot.Pool), nextSeq, toMillis(snapshot.UpdatedAt))
		if isConstraintError(err) {
			return fmt.Errorf("save state %s: %w", snapshot.Name, dao.ErrConflict)
		}
	case err != nil:
		return fmt.Errorf("read version of %s: %w", snapshot.Name, err)
	default:
		if err := dao.CheckVersion(stored, snapshot.Version); err != nil {
			return fmt.Errorf("save state %s: %w", snapshot.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE allocator_state SET strategy = ?, version = ?, header = ?, pool_size = ?, next_seq = ?, updated_at = ? WHERE name = ?`,
			string(snapshot.Strategy), snapshot.Version, header, len(snapshot.Pool), nextSeq, toMillis(snapshot.UpdatedAt), snapshot.Name)
	}
	if err != nil {
		return fmt.Errorf("write state %s: %w", snapshot.Name, err)
	}
	if err := deleteRows(ctx, tx, snapshot.Name); err != nil {
		return err
	}
	slots := make([]model.Slot, len(snapshot.Pool))
	for i, id := range snapshot.Pool {
		slots[i] = model.Slot{Index: i, ID: id}
	}
	if err := upsertSlots(ctx, tx, snapshot.Name, slots); err != nil {
		return err
	}
	owners := make([]string, 0, len(snapshot.Holdings))
	for owner := range snapshot.Holdings {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	var assigned []model.Assignment
	for _, owner := range owners {
		for _, id := range snapshot.Holdings[owner] {
			assigned = append(assigned, model.Assignment{ID: id, Owner: owner})
		}
	}
	if err := insertHoldings(ctx, tx, snapshot.Name, 0, assigned); err != nil {
		return err
	}
	if err := upsertNonces(ctx, tx, snapshot.Name, snapshot.Nonces); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state %s: %w", snapshot.Name, err)
	}
	return nil
}

// Apply writes the rows delta touches and the header.
func (s *Service) Apply(ctx context.Context, delta *model.Delta) error {
	if delta == nil {
		return dao.ErrNilEntity
	}
	if delta.Name == "" {
		return dao.ErrInvalidID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply %s: %w", delta.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		stored   uint64
		header   string
		poolSize int
		nextSeq  int
	)
	err = tx.QueryRowContext(ctx, `SELECT version, header, pool_size, next_seq FROM allocator_state WHERE name = ?`, delta.Name).
		Scan(&stored, &header, &poolSize, &nextSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("apply delta %d to %s: %w", delta.Version, delta.Name, dao.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read version of %s: %w", delta.Name, err)
	}
	if err := dao.CheckNext(stored, delta.Version); err != nil {
		return fmt.Errorf("apply delta %d to %s: %w", delta.Version, delta.Name, err)
	}
	if err := delta.Validate(poolSize); err != nil {
		return err
	}
	current, err := decodeHeader(header)
	if err != nil {
		return err
	}
	current.Cursor = delta.Cursor
	current.Proceeds = delta.Proceeds
	current.Price = delta.Price
	current.Version = delta.Version
	current.UpdatedAt = delta.UpdatedAt
	if header, err = encodeHeader(current); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE allocator_state SET version = ?, header = ?, pool_size = ?, next_seq = ?, updated_at = ? WHERE name = ?`,
		delta.Version, header, delta.PoolSize, nextSeq+len(delta.Assigned), toMillis(delta.UpdatedAt), delta.Name); err != nil {
		return fmt.Errorf("write state %s: %w", delta.Name, err)
	}
	if delta.PoolSize < poolSize {
		if _, err = tx.ExecContext(ctx, `DELETE FROM allocator_pool WHERE name = ? AND slot >= ?`, delta.Name, delta.PoolSize); err != nil {
			return fmt.Errorf("truncate pool of %s: %w", delta.Name, err)
		}
	}
	if err := upsertSlots(ctx, tx, delta.Name, delta.Slots); err != nil {
		return err
	}
	if err := insertHoldings(ctx, tx, delta.Name, nextSeq, delta.Assigned); err != nil {
		return err
	}
	if err := upsertNonces(ctx, tx, delta.Name, delta.Nonces); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delta %d of %s: %w", delta.Version, delta.Name, err)
	}
	return nil
}

// Load assembles the state stored under name.
func (s *Service) Load(ctx context.Context, name string) (*model.State, error) {
	if name == "" {
		return nil, dao.ErrInvalidID
	}
	var (
		header   string
		poolSize int
	)
	err := s.db.QueryRowContext(ctx, `SELECT header, pool_size FROM allocator_state WHERE name = ?`, name).Scan(&header, &poolSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state %s: %w", name, dao.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", name, err)
	}
	current, err := decodeHeader(header)
	if err != nil {
		return nil, err
	}
	if current.Pool, err = s.loadPool(ctx, name, poolSize); err != nil {
		return nil, err
	}
	if current.Holdings, err = s.loadHoldings(ctx, name); err != nil {
		return nil, err
	}
	if current.Nonces, err = s.loadNonces(ctx, name); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) loadPool(ctx context.Context, name string, size int) ([]uint64, error) {
	if size == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT slot, number FROM allocator_pool WHERE name = ? ORDER BY slot`, name)
	if err != nil {
		return nil, fmt.Errorf("load pool of %s: %w", name, err)
	}
	defer rows.Close()
	pool := make([]uint64, 0, size)
	for rows.Next() {
		var (
			slot int
			id   uint64
		)
		if err := rows.Scan(&slot, &id); err != nil {
			return nil, fmt.Errorf("scan pool slot: %w", err)
		}
		if slot != len(pool) {
			return nil, fmt.Errorf("pool of %s: missing slot %d", name, len(pool))
		}
		pool = append(pool, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool of %s: %w", name, err)
	}
	if len(pool) != size {
		return nil, fmt.Errorf("pool of %s: %d slots stored, %d expected", name, len(pool), size)
	}
	return pool, nil
}

func (s *Service) loadHoldings(ctx context.Context, name string) (map[string][]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, number FROM allocator_holding WHERE name = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("load holdings of %s: %w", name, err)
	}
	defer rows.Close()
	var holdings map[string][]uint64
	for rows.Next() {
		var (
			owner string
			id    uint64
		)
		if err := rows.Scan(&owner, &id); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		if holdings == nil {
			holdings = make(map[string][]uint64)
		}
		holdings[owner] = append(holdings[owner], id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings of %s: %w", name, err)
	}
	return holdings, nil
}

func (s *Service) loadNonces(ctx context.Context, name string) (map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, nonce FROM allocator_nonce WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("load nonces of %s: %w", name, err)
	}
	defer rows.Close()
	var nonces map[string]uint64
	for rows.Next() {
		var (
			owner string
			nonce uint64
		)
		if err := rows.Scan(&owner, &nonce); err != nil {
			return nil, fmt.Errorf("scan nonce: %w", err)
		}
		if nonces == nil {
			nonces = make(map[string]uint64)
		}
		nonces[owner] = nonce
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nonces of %s: %w", name, err)
	}
	return nonces, nil
}

// Delete removes the state stored under name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return dao.ErrInvalidID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()
	result, err := tx.ExecContext(ctx, `DELETE FROM allocator_state WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete state %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete state %s: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("state %s: %w", name, dao.ErrNotFound)
	}
	if err := deleteRows(ctx, tx, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", name, err)
	}
	return nil
}

// List returns the states matching parameters, ordered by name.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM allocator_state ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan state name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate states: %w", err)
	}
	_ = rows.Close()

	var states []*model.State
	for _, name := range names {
		current, err := s.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		if criteria.Match(current, parameters) {
			states = append(states, current)
		}
	}
	return states, nil
}

func deleteRows(ctx context.Context, tx *sql.Tx, name string) error {
	for _, table := range []string{"allocator_pool", "allocator_holding", "allocator_nonce"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE name = ?`, name); err != nil {
			return fmt.Errorf("clear %s of %s: %w", table, name, err)
		}
	}
	return nil
}

func upsertSlots(ctx context.Context, tx *sql.Tx, name string, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO allocator_pool (name, slot, number) VALUES (?, ?, ?) ON CONFLICT (name, slot) DO UPDATE SET number = excluded.number`)
	if err != nil {
		return fmt.Errorf("prepare pool write: %w", err)
	}
	defer stmt.Close()
	for _, slot := range slots {
		if _, err := stmt.ExecContext(ctx, name, slot.Index, slot.ID); err != nil {
			return fmt.Errorf("write pool slot %d of %s: %w", slot.Index, name, err)
		}
	}
	return nil
}

func insertHoldings(ctx context.Context, tx *sql.Tx, name string, seq int, assigned []model.Assignment) error {
	if len(assigned) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO allocator_holding (name, number, owner, seq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare holding write: %w", err)
	}
	defer stmt.Close()
	for i, assignment := range assigned {
		_, err := stmt.ExecContext(ctx, name, assignment.ID, assignment.Owner, seq+i)
		if isConstraintError(err) {
			return fmt.Errorf("identifier %d of %s: %w", assignment.ID, name, dao.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("write holding %d of %s: %w", assignment.ID, name, err)
		}
	}
	return nil
}

func upsertNonces(ctx context.Context, tx *sql.Tx, name string, nonces map[string]uint64) error {
	if len(nonces) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO allocator_nonce (name, owner, nonce) VALUES (?, ?, ?) ON CONFLICT (name, owner) DO UPDATE SET nonce = excluded.nonce`)
	if err != nil {
		return fmt.Errorf("prepare nonce write: %w", err)
	}
	defer stmt.Close()
	for owner, nonce := range nonces {
		if _, err := stmt.ExecContext(ctx, name, owner, nonce); err != nil {
			return fmt.Errorf("write nonce of %s in %s: %w", owner, name, err)
		}
	}
	return nil
}

// encodeHeader serialises the scalar part of snapshot.
func encodeHeader(snapshot *model.State) (string, error) {
	header := *snapshot
	header.Pool, header.Holdings, header.Nonces = nil, nil, nil
	data, err := json.Marshal(&header)
	if err != nil {
		return "", fmt.Errorf("marshal state header: %w", err)
	}
	return string(data), nil
}

func decodeHeader(payload string) (*model.State, error) {
	var header model.State
	if err := json.Unmarshal([]byte(payload), &header); err != nil {
		return nil, fmt.Errorf("decode state header: %w", err)
	}
	return &header, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
