package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// SummaryRepository stores generated summaries keyed by video id.
type SummaryRepository struct {
	db *sql.DB
}

// NewSummaryRepository creates a new [SummaryRepository] with the given database connection
func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Get returns the cached summary for videoID, or [shared.ErrNotFound].
func (r *SummaryRepository) Get(ctx context.Context, videoID string) (*models.Summary, error) {
	query := `
		SELECT video_id, summary, source, provider, created_at
		FROM summaries
		WHERE video_id = ?
	`

	var (
		id        string
		text      string
		source    string
		provider  string
		createdAt time.Time
	)

	err := r.db.QueryRowContext(ctx, query, videoID).Scan(&id, &text, &source, &provider, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: summary %s", shared.ErrNotFound, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	summary := models.NewSummary(id, text, source, provider)
	summary.SetCreatedAt(createdAt)
	return summary, nil
}

// Save stores summary. The first summary written for a video wins so repeated requests stay identical.
func (r *SummaryRepository) Save(ctx context.Context, summary *models.Summary) error {
	if err := summary.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO summaries (video_id, summary, source, provider, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		summary.VideoID(), summary.Text(), summary.Source(), summary.Provider(), summary.CreatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	return nil
}

// Delete evicts the cached summary for videoID.
func (r *SummaryRepository) Delete(ctx context.Context, videoID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM summaries WHERE video_id = ?", videoID)
	if err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}

	ok, err := rowsAffected(result)
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: summary %s", shared.ErrNotFound, videoID)
	}

	return nil
}

// Count returns the number of cached summaries.
func (r *SummaryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summaries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count summaries: %w", err)
	}
	return n, nil
}
