package note

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/notes-api/internal/database"
)

var (
	ErrNotFound      = errors.New("note not found")
	ErrDuplicateNote = errors.New("note already exists")
)

// Repository handles note persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a note. A note with the same title and content for the
// same owner is rejected by the notes_owner_title_content_key index.
func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, title, content string) (*Note, error) {
	dbNote := &database.Note{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
		Content: content,
	}

	_, err := r.db.NewInsert().
		Model(dbNote).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, database.NotesOwnerTitleContentKey) {
			return nil, ErrDuplicateNote
		}
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	return mapDBNoteToModel(dbNote), nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	dbNote := new(database.Note)
	err := r.db.NewSelect().
		Model(dbNote).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return mapDBNoteToModel(dbNote), nil
}

// FindAllByOwner returns the owner's notes, newest first.
func (r *Repository) FindAllByOwner(ctx context.Context, ownerID uuid.UUID) ([]Note, error) {
	var dbNotes []database.Note
	err := r.db.NewSelect().
		Model(&dbNotes).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]Note, 0, len(dbNotes))
	for i := range dbNotes {
		notes = append(notes, *mapDBNoteToModel(&dbNotes[i]))
	}
	return notes, nil
}

// Update writes the title and content of n. The owner is never changed.
func (r *Repository) Update(ctx context.Context, n *Note) (*Note, error) {
	dbNote := &database.Note{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		UpdatedAt: time.Now(),
	}

	result, err := r.db.NewUpdate().
		Model(dbNote).
		Column("title", "content", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if database.IsUniqueViolation(err, database.NotesOwnerTitleContentKey) {
			return nil, ErrDuplicateNote
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	updated := *n
	updated.UpdatedAt = dbNote.UpdatedAt
	return &updated, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Note)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func mapDBNoteToModel(dbn *database.Note) *Note {
	return &Note{
		ID:        dbn.ID,
		OwnerID:   dbn.OwnerID,
		Title:     dbn.Title,
		Content:   dbn.Content,
		CreatedAt: dbn.CreatedAt,
		UpdatedAt: dbn.UpdatedAt,
	}
}
