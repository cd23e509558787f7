package storage

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/prodcat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/prodcat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/prodcat/internal/dbx"
)

// Store is the client's local state: persisted sessions plus the
// preferences recorded alongside them.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Load(ctx context.Context, realm string) (*sessions.Session, error) {
	return sessions.NewSQLiteRepository(s.db).Get(ctx, realm)
}

// Save stores the session and remembers its user and realm as the last used
// ones, in a single transaction.
func (s *Store) Save(ctx context.Context, rec *sessions.Session) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := sessions.NewSQLiteRepository(tx).Save(ctx, rec); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).RememberLogin(ctx, rec.Username, rec.Realm)
	})
}

func (s *Store) Delete(ctx context.Context, realm string) error {
	return sessions.NewSQLiteRepository(s.db).Delete(ctx, realm)
}

// Preference returns a stored preference, "" if unset.
func (s *Store) Preference(ctx context.Context, key string) (string, error) {
	return metadata.NewSQLiteRepository(s.db).Get(ctx, key)
}

func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	return metadata.NewSQLiteRepository(s.db).Set(ctx, key, value)
}

// Wipe forgets every session and preference.
func (s *Store) Wipe(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := sessions.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).Clear(ctx)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
