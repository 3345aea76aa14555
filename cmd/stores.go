package main

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/runclub/internal/config"
	"github.com/Shivanand-hulikatti/runclub/internal/database"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/sqlite"
)

// stores are the persistence handles for the configured backend.
type stores struct {
	runs    repository.RunStore
	signups repository.SignUpLedger
	users   repository.UserStore
	close   func()
}

// openStores connects to the configured backend. Postgres schemas are
// migrated first when migrate is set; the SQLite schema is always applied.
func openStores(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (*stores, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info(log.CatDB, "Opened SQLite database", "path", db.Path())
		return &stores{
			runs:    db.RunRepository(),
			signups: db.SignUpRepository(),
			users:   db.UserRepository(),
			close:   func() { _ = db.Close() },
		}, nil

	case "postgres":
		if migrate {
			if err := database.Migrate(cfg); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return &stores{
			runs:    repository.NewRunRepository(pool),
			signups: repository.NewSignUpRepository(pool),
			users:   repository.NewUserRepository(pool),
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}
