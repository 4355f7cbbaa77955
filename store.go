package main

import (
	"context"
	"fmt"

	"vehicle-tracker/config"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (VehicleStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverFirestore:
		return NewFirestoreStore(ctx, cfg.ProjectID, cfg.CredentialsFile, cfg.Collection, cfg.DocumentID)
	case config.DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.Collection, cfg.DocumentID)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Collection, cfg.DocumentID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
