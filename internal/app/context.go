// Package app opens a workspace: database, schema, config and engine.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"plurianual/internal/config"
	"plurianual/internal/db"
	"plurianual/internal/engine"
	"plurianual/internal/migrate"
)

type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open migrates the workspace database and loads plurianual.yml, falling back
// to the default catalogs when the file is absent.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir, BusyTimeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Debug("workspace opened", "dir", dir, "db", db.Path(dir), "schema_version", version)
	return &Workspace{
		Dir:    dir,
		DB:     conn,
		Config: cfg,
		Engine: engine.New(conn, cfg, logger),
	}, nil
}

func (w *Workspace) Close() error {
	return w.DB.Close()
}
