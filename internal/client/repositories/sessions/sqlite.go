package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, realm string) (*Session, error) {
	s := &Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT realm, username, refresh_token, updated_at FROM sessions WHERE realm = ?`, realm).
		Scan(&s.Realm, &s.Username, &s.RefreshToken, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", realm, err)
	}
	return s, nil
}

// Save upserts s. A zero UpdatedAt is replaced with the current time.
func (r *SQLiteRepository) Save(ctx context.Context, s *Session) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (realm, username, refresh_token, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(realm) DO UPDATE SET
			username = excluded.username,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`, s.Realm, s.Username, s.RefreshToken, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session[%s]: %w", s.Realm, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, realm string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE realm = ?`, realm)
	if err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", realm, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
