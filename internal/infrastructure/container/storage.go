package container

import (
	"context"
	"fmt"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/gdugdh24/swipematch/internal/infrastructure/database"
	"github.com/gdugdh24/swipematch/internal/repository"
	"github.com/gdugdh24/swipematch/internal/repository/dynamo"
	"github.com/gdugdh24/swipematch/internal/repository/sqlstore"
	"github.com/jmoiron/sqlx"
)

// Repositories is the storage backend selected by Database.Driver.
type Repositories struct {
	Edges    repository.EdgeRepository
	Matches  repository.MatchRepository
	Profiles repository.ProfileRepository

	// Exactly one of DB and Dynamo is set.
	DB     *sqlx.DB
	Dynamo *dynamo.Store
}

// OpenRepositories connects to the configured store without touching its schema.
func OpenRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.Database.Driver {
	case "dynamodb":
		client, err := database.NewDynamoClient(ctx, &cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		store := dynamo.NewStore(client, cfg.Dynamo.Table)
		return &Repositories{Edges: store, Matches: store, Profiles: store, Dynamo: store}, nil

	case "postgres", "sqlite":
		var (
			db  *sqlx.DB
			err error
		)
		if cfg.Database.Driver == "postgres" {
			db, err = database.NewPostgresDB(ctx, &cfg.Database)
		} else {
			db, err = database.NewSQLiteDB(cfg.Database.SQLitePath)
		}
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Edges:    sqlstore.NewEdgeRepository(db),
			Matches:  sqlstore.NewMatchRepository(db),
			Profiles: sqlstore.NewProfileRepository(db),
			DB:       db,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Migrate brings the schema up to date and reports what was applied.
func (r *Repositories) Migrate(ctx context.Context) ([]string, error) {
	if r.Dynamo != nil {
		created, err := r.Dynamo.EnsureTable(ctx)
		if err != nil {
			return nil, err
		}
		if created {
			return []string{"dynamodb table"}, nil
		}
		return nil, nil
	}
	return database.Migrate(ctx, r.DB)
}

func (r *Repositories) Close() error {
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
