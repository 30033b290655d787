package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// ReelRepository implements models.Repository[*models.Reel].
//
// A reel and its ordered items are written in one transaction; item positions
// are stored verbatim so the saved order is the playback order.
type ReelRepository struct {
	db *sql.DB
}

// NewReelRepository creates a new ReelRepository with the given database connection
func NewReelRepository(db *sql.DB) *ReelRepository {
	return &ReelRepository{db: db}
}

// Create inserts a new reel and its items with generated ID and sequence
func (r *ReelRepository) Create(reel *models.Reel) error {
	if err := reel.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "reels")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	reel.SetID(shared.GenerateID())
	reel.SetSequence(sequence)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO reels (id, sequence, title, folder, theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		reel.ID(),
		reel.Sequence(),
		reel.Title(),
		reel.Folder(),
		reel.Theme(),
		reel.CreatedAt(),
		reel.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reel: %w", err)
	}

	if err := insertItems(tx, reel.ID(), reel.Items()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reel: %w", err)
	}

	return nil
}

// Get retrieves a reel with its items by ID, excluding soft-deleted reels
func (r *ReelRepository) Get(id string) (*models.Reel, error) {
	query := `
		SELECT id, sequence, title, folder, theme, created_at, updated_at
		FROM reels
		WHERE id = ? AND deleted_at IS NULL
	`

	reel, err := r.scanReel(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(reel.ID())
	if err != nil {
		return nil, err
	}
	reel.SetItems(items)

	return reel, nil
}

// GetByTitle retrieves the most recently updated reel with the given title
func (r *ReelRepository) GetByTitle(title string) (*models.Reel, error) {
	query := `
		SELECT id, sequence, title, folder, theme, created_at, updated_at
		FROM reels
		WHERE title = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`

	reel, err := r.scanReel(r.db.QueryRow(query, title))
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(reel.ID())
	if err != nil {
		return nil, err
	}
	reel.SetItems(items)

	return reel, nil
}

// Update rewrites a reel's header and replaces its item ordering
func (r *ReelRepository) Update(reel *models.Reel) error {
	if err := reel.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	reel.Touch()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE reels
		SET title = ?, folder = ?, theme = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query,
		reel.Title(),
		reel.Folder(),
		reel.Theme(),
		reel.UpdatedAt(),
		reel.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update reel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrReelNotFound, reel.ID())
	}

	// Replace the whole ordering rather than diffing item rows.
	if _, err := tx.Exec("DELETE FROM reel_items WHERE reel_id = ?", reel.ID()); err != nil {
		return fmt.Errorf("failed to clear reel items: %w", err)
	}
	if err := insertItems(tx, reel.ID(), reel.Items()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reel update: %w", err)
	}

	return nil
}

// Delete soft-deletes a reel by ID; its items remain for history
func (r *ReelRepository) Delete(id string) error {
	query := `
		UPDATE reels
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete reel: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrReelNotFound, id)
	}

	return nil
}

// List retrieves reel headers matching the given criteria, excluding soft-deleted reels.
// Items are not loaded; use [ReelRepository.Get] for the full arrangement.
func (r *ReelRepository) List(criteria map[string]any) ([]*models.Reel, error) {
	query := `
		SELECT id, sequence, title, folder, theme, created_at, updated_at
		FROM reels
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if folder, ok := criteria["folder"].(string); ok && folder != "" {
		query += " AND folder = ?"
		args = append(args, folder)
	}

	if theme, ok := criteria["theme"].(string); ok && theme != "" {
		query += " AND theme = ?"
		args = append(args, theme)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reels: %w", err)
	}
	defer rows.Close()

	var reels []*models.Reel
	for rows.Next() {
		reel, err := r.scanReel(rows)
		if err != nil {
			return nil, err
		}
		reels = append(reels, reel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reels, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic
type scanner interface {
	Scan(dest ...any) error
}

func (r *ReelRepository) scanReel(row scanner) (*models.Reel, error) {
	var (
		id        string
		sequence  int
		title     string
		folder    string
		theme     string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &sequence, &title, &folder, &theme, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrReelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan reel: %w", err)
	}

	reel := models.NewReel(title, folder)
	reel.SetID(id)
	reel.SetSequence(sequence)
	reel.SetTheme(theme)
	reel.SetTimestamps(createdAt, updatedAt)

	return reel, nil
}

func (r *ReelRepository) loadItems(reelID string) ([]models.ReelItem, error) {
	query := `
		SELECT id, position, path, name, size, duration_seconds, thumbnail_url
		FROM reel_items
		WHERE reel_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, reelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reel items: %w", err)
	}
	defer rows.Close()

	var items []models.ReelItem
	for rows.Next() {
		var (
			item    models.ReelItem
			seconds int64
		)
		if err := rows.Scan(&item.ID, &item.Position, &item.Path, &item.Name, &item.Size, &seconds, &item.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("failed to scan reel item: %w", err)
		}
		item.Duration = time.Duration(seconds) * time.Second
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func insertItems(tx *sql.Tx, reelID string, items []models.ReelItem) error {
	query := `
		INSERT INTO reel_items (id, reel_id, position, path, name, size, duration_seconds, thumbnail_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = shared.GenerateID()
		}
		_, err := tx.Exec(query,
			items[i].ID,
			reelID,
			items[i].Position,
			items[i].Path,
			items[i].Name,
			items[i].Size,
			int64(items[i].Duration/time.Second),
			items[i].ThumbnailURL,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reel item %d: %w", items[i].Position, err)
		}
	}

	return nil
}
