// Package store persists users, documents and document snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/designkit/internal/config"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Document is the metadata row for an editable document. Its content lives
// in snapshots.
type Document struct {
	ID        string
	Name      string
	OwnerID   string
	Width     float64
	Height    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Snapshot struct {
	ID         string
	DocumentID string
	Version    int
	Data       []byte
	CreatedAt  time.Time
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateDocument(ctx context.Context, d Document) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context, ownerID string) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// SaveSnapshot appends a snapshot with the next version number.
	SaveSnapshot(ctx context.Context, documentID, snapshotID string, data []byte) (Snapshot, error)
	LatestSnapshot(ctx context.Context, documentID string) (Snapshot, error)

	Migrate(ctx context.Context) error
	Close()
}

// Open connects to the store selected by cfg.StoreDriver and applies the
// schema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.StoreDriver {
	case "postgres":
		s, err = OpenPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		s, err = OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}
