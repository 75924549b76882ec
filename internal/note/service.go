package note

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingFields = errors.New("title and content are required")
	ErrForbidden     = errors.New("note belongs to another user")
)

// Store is the note persistence used by Service.
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, title, content string) (*Note, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Note, error)
	FindAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]Note, error)
	Update(ctx context.Context, n *Note) (*Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements note operations on behalf of an authenticated requestor.
type Service struct {
	notes Store
}

func NewService(notes Store) *Service {
	return &Service{notes: notes}
}

// authorize is the single ownership check shared by every per-note operation.
func authorize(n *Note, requestor uuid.UUID) error {
	if n.OwnerID != requestor {
		return ErrForbidden
	}
	return nil
}

func normalize(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return "", "", ErrMissingFields
	}
	return title, content, nil
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, title, content string) (*Note, error) {
	title, content, err := normalize(title, content)
	if err != nil {
		return nil, err
	}

	n, err := s.notes.Create(ctx, ownerID, title, content)
	if err != nil {
		if errors.Is(err, ErrDuplicateNote) {
			return nil, ErrDuplicateNote
		}
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	return n, nil
}

// Get returns a note the requestor owns.
func (s *Service) Get(ctx context.Context, id, requestor uuid.UUID) (*Note, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(n, requestor); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns the owner's notes, newest first. It never returns nil on success.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]Note, error) {
	notes, err := s.notes.FindAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Update replaces title and content. Input is validated before the note is
// looked up, so an invalid body yields ErrMissingFields even for unknown ids.
func (s *Service) Update(ctx context.Context, id uuid.UUID, title, content string, requestor uuid.UUID) (*Note, error) {
	title, content, err := normalize(title, content)
	if err != nil {
		return nil, err
	}

	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(n, requestor); err != nil {
		return nil, err
	}

	n.Title = title
	n.Content = content

	updated, err := s.notes.Update(ctx, n)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateNote) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id, requestor uuid.UUID) error {
	n, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(n, requestor); err != nil {
		return err
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete note: %w", err)
	}

	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Note, error) {
	n, err := s.notes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}
