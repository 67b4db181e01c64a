package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
	"golang.org/x/oauth2"
)

// SessionRepository persists [models.Session] rows.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts session, generating an id when it has none.
//
// An existing row with the same id is replaced, which lets fixed ids (the CLI session) log in again.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID() == "" {
		session.SetID(shared.GenerateID())
	}

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	access, refresh, tokenType, expiry := tokenColumns(session.Token())
	lastSeen := session.LastSeen()
	if lastSeen.IsZero() {
		lastSeen = session.UpdatedAt()
	}
	query := `
		INSERT INTO sessions (id, mock, access_token, refresh_token, token_type, expiry, created_at, updated_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mock = excluded.mock,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at,
			last_seen = excluded.last_seen
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID(), session.Mock(), access, refresh, tokenType, expiry, session.CreatedAt().UTC(), session.UpdatedAt().UTC(), lastSeen.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by id. Missing rows return [shared.ErrNotFound].
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, mock, access_token, refresh_token, token_type, expiry, created_at, updated_at, last_seen
		FROM sessions
		WHERE id = ?
	`

	var (
		sessionID string
		mock      bool
		token     oauth2.Token
		expiry    sql.NullTime
		createdAt time.Time
		updatedAt time.Time
		lastSeen  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sessionID, &mock, &token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry, &createdAt, &updatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if expiry.Valid {
		token.Expiry = expiry.Time
	}

	session := models.NewSession(nil, mock)
	if !mock {
		session.SetToken(&token)
	}
	session.SetID(sessionID)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	session.SetLastSeen(updatedAt)
	if lastSeen.Valid {
		session.SetLastSeen(lastSeen.Time)
	}

	return session, nil
}

// UpdateToken stores a refreshed token for the session.
func (r *SessionRepository) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	access, refresh, tokenType, expiry := tokenColumns(token)
	query := `
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, access, refresh, tokenType, expiry, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	ok, err := rowsAffected(result)
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}

	return nil
}

// Touch records that the session was used at.
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE sessions SET last_seen = ? WHERE id = ?", at.UTC(), id); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeBefore deletes sessions not seen since cutoff and returns how many were removed.
func (r *SessionRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE COALESCE(last_seen, updated_at) < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return result.RowsAffected()
}

func tokenColumns(t *oauth2.Token) (access, refresh, tokenType string, expiry sql.NullTime) {
	if t == nil {
		return "", "", "", sql.NullTime{}
	}
	return t.AccessToken, t.RefreshToken, t.TokenType, nullTime(t.Expiry)
}
