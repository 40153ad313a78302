// Package sqlstore provides a codewords.Store persisted to a local SQLite
// file. Rooms are stored whole as JSON documents, with the version broken out
// into its own column for conditional writes.
//
// All database access is funneled through a single goroutine, so writes never
// contend on SQLite's file lock.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bcspragu/Codewords"
	"github.com/mattn/go-sqlite3"
)

var createTableStmts = []string{
	`CREATE TABLE IF NOT EXISTS Rooms (
		code TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL
	)`,
}

// Store is a SQLite-backed room store. Safe for concurrent use; calls are
// serialized internally.
type Store struct {
	sdb *sql.DB

	reqChan  chan func(sdb *sql.DB)
	doneChan chan struct{}
}

// New opens (or creates) the SQLite database at dbPath and prepares the
// schema. Call Close when done.
func New(dbPath string) (*Store, error) {
	// The busy timeout and WAL journal keep the file usable if another
	// process has it open too.
	sdb, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, stmt := range createTableStmts {
		if _, err := sdb.Exec(stmt); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	s := &Store{
		sdb:      sdb,
		reqChan:  make(chan func(sdb *sql.DB)),
		doneChan: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Store) run() {
	for req := range s.reqChan {
		req(s.sdb)
	}
	s.sdb.Close()
	close(s.doneChan)
}

// Close drains pending requests and closes the database.
func (s *Store) Close() error {
	close(s.reqChan)
	<-s.doneChan
	return nil
}

func (s *Store) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	errChan := make(chan error, 1)
	s.reqChan <- func(sdb *sql.DB) {
		_, err := sdb.ExecContext(ctx,
			`INSERT INTO Rooms (code, version, data) VALUES (?, ?, ?)`,
			rm.Code, rm.Version, string(data))
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
			errChan <- codewords.ErrRoomExists
			return
		}
		if err != nil {
			errChan <- fmt.Errorf("failed to insert room: %w", err)
			return
		}
		errChan <- nil
	}
	return <-errChan
}

func (s *Store) Room(ctx context.Context, code string) (*codewords.Room, error) {
	type resp struct {
		rm  *codewords.Room
		err error
	}
	respChan := make(chan resp, 1)
	s.reqChan <- func(sdb *sql.DB) {
		var data string
		err := sdb.QueryRowContext(ctx,
			`SELECT data FROM Rooms WHERE code = ?`, code).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			respChan <- resp{err: codewords.ErrRoomNotFound}
			return
		}
		if err != nil {
			respChan <- resp{err: fmt.Errorf("failed to load room: %w", err)}
			return
		}
		var rm codewords.Room
		if err := json.Unmarshal([]byte(data), &rm); err != nil {
			respChan <- resp{err: fmt.Errorf("failed to unmarshal room: %w", err)}
			return
		}
		respChan <- resp{rm: &rm}
	}
	r := <-respChan
	return r.rm, r.err
}

func (s *Store) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	errChan := make(chan error, 1)
	s.reqChan <- func(sdb *sql.DB) {
		res, err := sdb.ExecContext(ctx,
			`UPDATE Rooms SET version = ?, data = ? WHERE code = ? AND version = ?`,
			rm.Version, string(data), rm.Code, fromVersion)
		if err != nil {
			errChan <- fmt.Errorf("failed to update room: %w", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			errChan <- fmt.Errorf("failed to check update: %w", err)
			return
		}
		if n == 0 {
			// Either the room is gone or someone got there first.
			var v int64
			err := sdb.QueryRowContext(ctx,
				`SELECT version FROM Rooms WHERE code = ?`, rm.Code).Scan(&v)
			if errors.Is(err, sql.ErrNoRows) {
				errChan <- codewords.ErrRoomNotFound
				return
			}
			if err != nil {
				errChan <- fmt.Errorf("failed to check room version: %w", err)
				return
			}
			errChan <- codewords.ErrVersionConflict
			return
		}
		errChan <- nil
	}
	return <-errChan
}
