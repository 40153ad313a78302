// Package pgstore provides a codewords.Store backed by PostgreSQL, for
// hosting rooms behind a shared database. Rooms are stored whole as JSONB
// documents with the version in its own column, and conditional writes ride
// on a versioned UPDATE.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcspragu/Codewords"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store is a PostgreSQL-backed room store. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database at connString, applies pending migrations,
// and returns the store. Call Close when done.
func New(ctx context.Context, connString string) (*Store, error) {
	if err := migrate(connString); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// migrate runs goose over the embedded migrations. Goose wants a database/sql
// handle, so it gets its own short-lived connection via the pgx stdlib
// driver.
func migrate(connString string) error {
	mdb, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer mdb.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(mdb, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rooms (code, version, data) VALUES ($1, $2, $3)`,
		rm.Code, rm.Version, data)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// "23505" is the PostgreSQL error code for unique_violation.
		if pgErr.Code == "23505" {
			return codewords.ErrRoomExists
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (s *Store) Room(ctx context.Context, code string) (*codewords.Room, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM rooms WHERE code = $1`, code).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, codewords.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	var rm codewords.Room
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &rm, nil
}

func (s *Store) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	ct, err := s.pool.Exec(ctx,
		`UPDATE rooms SET version = $1, data = $2 WHERE code = $3 AND version = $4`,
		rm.Version, data, rm.Code, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the room is gone or the version moved.
	var v int64
	err = s.pool.QueryRow(ctx,
		`SELECT version FROM rooms WHERE code = $1`, rm.Code).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return codewords.ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check room version: %w", err)
	}
	return codewords.ErrVersionConflict
}
