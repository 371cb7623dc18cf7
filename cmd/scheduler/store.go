package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	config "github.com/maheshrc27/igscheduler/configs"
	"github.com/maheshrc27/igscheduler/internal/migrations"
	"github.com/maheshrc27/igscheduler/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// store bundles the repositories of the configured backend with its
// connection teardown.
type store struct {
	posts       repository.PostRepository
	credentials repository.CredentialRepository
	close       func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return openPostgres(ctx, cfg)
	case "mongo":
		return openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*store, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &store{
		posts:       repository.NewPostRepository(db),
		credentials: repository.NewCredentialRepository(db),
		close:       db.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.DatabaseName)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
	}

	return &store{
		posts:       repository.NewMongoPostRepository(db),
		credentials: repository.NewMongoCredentialRepository(db),
		close: func() error {
			return client.Disconnect(context.Background())
		},
	}, nil
}

func (s *store) Close() {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := s.close(); err != nil {
		log.Printf("Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
