// Package fsstore provides a codewords.Store backed by Cloud Firestore, for
// hosting rooms with no server-side state at all. Each room is one document
// keyed by its code, and conditional writes run inside a transaction that
// rechecks the stored version.
package fsstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bcspragu/Codewords"
)

const roomsCollection = "rooms"

// Store is a Firestore-backed room store. Safe for concurrent use.
type Store struct {
	client *firestore.Client
}

// New initializes a Firebase app for the project and opens its Firestore
// client. Credentials come from opts (e.g. option.WithCredentialsFile) or
// the ambient environment; with FIRESTORE_EMULATOR_HOST set, the client
// talks to the emulator instead. Call Close when done.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	cfg := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close shuts down the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) room(code string) *firestore.DocumentRef {
	return s.client.Collection(roomsCollection).Doc(code)
}

func (s *Store) CreateRoom(ctx context.Context, rm *codewords.Room) error {
	_, err := s.room(rm.Code).Create(ctx, rm)
	if status.Code(err) == codes.AlreadyExists {
		return codewords.ErrRoomExists
	}
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (s *Store) Room(ctx context.Context, code string) (*codewords.Room, error) {
	ds, err := s.room(code).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, codewords.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	var rm codewords.Room
	if err := ds.DataTo(&rm); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	return &rm, nil
}

func (s *Store) UpdateRoom(ctx context.Context, rm *codewords.Room, fromVersion int64) error {
	ref := s.room(rm.Code)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ds, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return codewords.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load room: %w", err)
		}

		var cur struct {
			Version int64 `firestore:"version"`
		}
		if err := ds.DataTo(&cur); err != nil {
			return fmt.Errorf("failed to decode room version: %w", err)
		}
		if cur.Version != fromVersion {
			return codewords.ErrVersionConflict
		}
		return tx.Set(ref, rm)
	})
}
