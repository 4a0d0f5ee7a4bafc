package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	width      REAL NOT NULL,
	height     REAL NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	version     INTEGER NOT NULL,
	data        BLOB NOT NULL,
	created_at  INTEGER NOT NULL,
	UNIQUE (document_id, version)
);
`

// SQLite is the single-file Store used for local development and tests.
// Timestamps are stored as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (s *SQLite) Close() { s.db.Close() }

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *SQLite) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return User{}, sqliteError("create user", err)
	}
	return u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.user(ctx, "email", email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.user(ctx, "id", id)
}

func (s *SQLite) user(ctx context.Context, column, value string) (User, error) {
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, display_name, created_at FROM users WHERE `+column+` = ?`,
		value,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created)
	if err != nil {
		return User{}, sqliteError("get user", err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *SQLite) CreateDocument(ctx context.Context, d Document) (Document, error) {
	d.CreatedAt = now()
	d.UpdatedAt = d.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, owner_id, width, height, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.OwnerID, d.Width, d.Height, d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return Document{}, sqliteError("create document", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		d                Document
		created, updated int64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.Width, &d.Height, &created, &updated); err != nil {
		return Document{}, err
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return d, nil
}

func (s *SQLite) GetDocument(ctx context.Context, id string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, width, height, created_at, updated_at
		FROM documents WHERE id = ?`, id))
	if err != nil {
		return Document{}, sqliteError("get document", err)
	}
	return d, nil
}

func (s *SQLite) ListDocuments(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, width, height, created_at, updated_at
		FROM documents WHERE owner_id = ?
		ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLite) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, documentID, snapshotID string, data []byte) (Snapshot, error) {
	snap := Snapshot{ID: snapshotID, DocumentID: documentID, Data: data, CreatedAt: now()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE document_id = ?`, documentID,
	).Scan(&snap.Version)
	if err != nil {
		return Snapshot{}, sqliteError("save snapshot", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, document_id, version, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, documentID, snap.Version, data, snap.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Snapshot{}, sqliteError("save snapshot", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`,
		snap.CreatedAt.UnixMilli(), documentID)
	if err != nil {
		return Snapshot{}, sqliteError("save snapshot", err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLite) LatestSnapshot(ctx context.Context, documentID string) (Snapshot, error) {
	var (
		snap    Snapshot
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, version, data, created_at
		FROM snapshots WHERE document_id = ?
		ORDER BY version DESC LIMIT 1`, documentID,
	).Scan(&snap.ID, &snap.DocumentID, &snap.Version, &snap.Data, &created)
	if err != nil {
		return Snapshot{}, sqliteError("get snapshot", err)
	}
	snap.CreatedAt = fromMillis(created)
	return snap, nil
}

func sqliteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode() {
		case sqlite3.CONSTRAINT_UNIQUE, sqlite3.CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case sqlite3.CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
