package sqlite

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/hexvault/warden/resources"
)

type sqliteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(ctx context.Context, workDir, dbFile string) (*sqliteStore, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(workDir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dbx.SetMaxOpenConns(1)

	if _, err := dbx.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	return &sqliteStore{db: dbx}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
