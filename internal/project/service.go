package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/designkit/internal/document"
	"github.com/inamate/designkit/internal/store"
	"github.com/inamate/designkit/internal/typeid"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid document")
)

// Project is the metadata of a stored design document.
type Project struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	OwnerID   string  `json:"ownerId"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Snapshot is one saved version of a document's content.
type Snapshot struct {
	Version  int               `json:"version"`
	Document document.Document `json:"document"`
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create stores a new document owned by ownerID. A zero size seeds it with
// the sample banner; otherwise it starts as an empty artboard.
func (s *Service) Create(ctx context.Context, name, ownerID string, width, height float64) (*Project, error) {
	var doc document.Document
	if width <= 0 || height <= 0 {
		doc = document.NewSampleDocument()
	} else {
		doc = document.NewArtboard(name, width, height)
	}
	root, _ := doc.Layer(doc.Root())

	row, err := s.store.CreateDocument(ctx, store.Document{
		ID:      typeid.NewDocumentID(),
		Name:    name,
		OwnerID: ownerID,
		Width:   root.Transform.Size.X,
		Height:  root.Transform.Size.Y,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if _, err := s.save(ctx, row.ID, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toProject(row), nil
}

func (s *Service) Get(ctx context.Context, id, userID string) (*Project, error) {
	row, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return toProject(row), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.store.ListDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	projects := make([]Project, len(rows))
	for i, row := range rows {
		projects[i] = *toProject(row)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest saved content of a document the user owns.
func (s *Service) LatestSnapshot(ctx context.Context, id, userID string) (*Snapshot, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.Load(ctx, id)
}

// Save validates and stores a new snapshot for a document the user owns.
func (s *Service) Save(ctx context.Context, id, userID string, data []byte) (int, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return 0, err
	}
	doc, err := document.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return s.save(ctx, id, doc)
}

// Load returns the newest snapshot without an ownership check. Live
// sessions call it after authorizing the connection.
func (s *Service) Load(ctx context.Context, id string) (*Snapshot, error) {
	snap, err := s.store.LatestSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	doc, err := document.Unmarshal(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot v%d: %w", snap.Version, err)
	}
	return &Snapshot{Version: snap.Version, Document: doc}, nil
}

// Store writes doc as the newest snapshot of id.
func (s *Service) Store(ctx context.Context, id string, doc document.Document) (int, error) {
	return s.save(ctx, id, doc)
}

// Authorize reports whether userID may open document id.
func (s *Service) Authorize(ctx context.Context, id, userID string) error {
	_, err := s.owned(ctx, id, userID)
	return err
}

func (s *Service) save(ctx context.Context, id string, doc document.Document) (int, error) {
	data, err := document.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	snap, err := s.store.SaveSnapshot(ctx, id, typeid.NewSnapshotID(), data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return snap.Version, nil
}

func (s *Service) owned(ctx context.Context, id, userID string) (store.Document, error) {
	row, err := s.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Document{}, ErrNotFound
		}
		return store.Document{}, fmt.Errorf("get document: %w", err)
	}
	if row.OwnerID != userID {
		return store.Document{}, ErrForbidden
	}
	return row, nil
}

func toProject(d store.Document) *Project {
	return &Project{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		Width:     d.Width,
		Height:    d.Height,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
