// Package content stores source content records and resolves their owning
// creators. A SourceContent row is immutable once created: re-processing
// replaces its derived vectors, never the record itself.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Source type constants for ingested content.
const (
	SourceTypePDF       = "pdf"
	SourceTypeYouTube   = "youtube"
	SourceTypeInstagram = "instagram"
)

// Sentinel errors for store lookups.
var (
	// ErrCreatorNotFound indicates the owning creator could not be resolved.
	ErrCreatorNotFound = errors.New("creator not found")

	// ErrContentNotFound indicates the content record does not exist.
	ErrContentNotFound = errors.New("content not found")
)

// Creator is the tenant owning a body of content.
type Creator struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// SourceContent is one piece of raw source material (a PDF's extracted text,
// a video or reel transcript) awaiting or having completed ingestion.
type SourceContent struct {
	ID         string
	CreatorID  string
	SourceType string
	Title      string
	RawText    string
	CreatedAt  time.Time
}

// ValidSourceType reports whether t is a known source type.
func ValidSourceType(t string) bool {
	switch t {
	case SourceTypePDF, SourceTypeYouTube, SourceTypeInstagram:
		return true
	}
	return false
}

// Store persists creators and source content in PostgreSQL.
// Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureCreator upserts a creator record, returning the stored row.
// Used by the upload path so a first-time uploader gets a creator identity
// without a separate signup round-trip.
func (s *Store) EnsureCreator(ctx context.Context, id, email, name string) (Creator, error) {
	var c Creator
	err := s.pool.QueryRow(ctx, `
		INSERT INTO creators (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, email, name, created_at`,
		id, email, name).Scan(&c.ID, &c.Email, &c.Name, &c.CreatedAt)
	if err != nil {
		return Creator{}, fmt.Errorf("upserting creator %q: %w", id, err)
	}
	return c, nil
}

// ResolveCreator fetches a creator by ID.
// Returns ErrCreatorNotFound when no such creator exists.
func (s *Store) ResolveCreator(ctx context.Context, id string) (Creator, error) {
	var c Creator
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM creators WHERE id = $1`, id).
		Scan(&c.ID, &c.Email, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Creator{}, fmt.Errorf("%w: %s", ErrCreatorNotFound, id)
	}
	if err != nil {
		return Creator{}, fmt.Errorf("resolving creator %q: %w", id, err)
	}
	return c, nil
}

// CreateContent persists a new source content record and returns it with its
// generated ID and creation time.
func (s *Store) CreateContent(ctx context.Context, sc SourceContent) (SourceContent, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contents (id, creator_id, source_type, title, transcript)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		sc.ID, sc.CreatorID, sc.SourceType, sc.Title, sc.RawText).Scan(&sc.CreatedAt)
	if err != nil {
		return SourceContent{}, fmt.Errorf("creating content: %w", err)
	}
	return sc, nil
}

// GetContent fetches a content record by ID.
// Returns ErrContentNotFound when no such record exists.
func (s *Store) GetContent(ctx context.Context, id string) (SourceContent, error) {
	var sc SourceContent
	err := s.pool.QueryRow(ctx, `
		SELECT id, creator_id, source_type, title, transcript, created_at
		FROM contents WHERE id = $1`, id).
		Scan(&sc.ID, &sc.CreatorID, &sc.SourceType, &sc.Title, &sc.RawText, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SourceContent{}, fmt.Errorf("%w: %s", ErrContentNotFound, id)
	}
	if err != nil {
		return SourceContent{}, fmt.Errorf("fetching content %q: %w", id, err)
	}
	return sc, nil
}
