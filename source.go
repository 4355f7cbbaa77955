package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-tracker/config"
)

// LocationSource reports the tracked vehicle's position. found is false when
// the source has no record of the vehicle yet.
type LocationSource interface {
	Locate(ctx context.Context) (loc LatLng, found bool, err error)
}

// AlarmWriter persists the alarm flag with merge semantics: only the alert
// field is touched.
type AlarmWriter interface {
	WriteAlarm(ctx context.Context, on bool) error
}

// VehicleStore is the remote document holding lat, lng and alert.
type VehicleStore interface {
	Get(ctx context.Context) (doc VehicleDocument, exists bool, err error)
	AlarmWriter
	// WriteLocation merges lat/lng the way the vehicle's reporting agent does.
	WriteLocation(ctx context.Context, loc LatLng) error
	Close(ctx context.Context) error
}

type storeLocationSource struct {
	store VehicleStore
}

func (s storeLocationSource) Locate(ctx context.Context) (LatLng, bool, error) {
	doc, exists, err := s.store.Get(ctx)
	if err != nil || !exists {
		return LatLng{}, false, err
	}
	loc, err := doc.Location()
	if errors.Is(err, ErrIncompleteDocument) {
		// An alarm write can create the document before the vehicle reports.
		return LatLng{}, false, nil
	}
	if err != nil {
		return LatLng{}, false, err
	}
	return loc, true, nil
}

func selectLocationSource(cfg config.VehicleConfig, store VehicleStore) (LocationSource, error) {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	switch cfg.Source {
	case "", config.SourceStore:
		return storeLocationSource{store: store}, nil
	case config.SourceGTFSRT:
		return NewGtfsRtVehicleSource(cfg.FeedURL, cfg.FeedVehicleID, timeout), nil
	case config.SourceSiriJSON:
		return NewSiriJsonVehicleSource(cfg.FeedURL, cfg.FeedVehicleID, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported vehicle source %q", cfg.Source)
	}
}
