package main

import (
	"context"
	"sync"
)

// MemoryStore keeps the vehicle document in process. It backs local runs and
// tests; the vehicle agent feeds it through POST /api/vehicle/location.
type MemoryStore struct {
	mu     sync.Mutex
	doc    VehicleDocument
	exists bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) (VehicleDocument, bool, error) {
	if err := ctx.Err(); err != nil {
		return VehicleDocument{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.doc
	if doc.Lat != nil {
		lat := *doc.Lat
		doc.Lat = &lat
	}
	if doc.Lng != nil {
		lng := *doc.Lng
		doc.Lng = &lng
	}
	return doc, m.exists, nil
}

func (m *MemoryStore) WriteLocation(ctx context.Context, loc LatLng) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lat, lng := loc.Lat, loc.Lng
	m.doc.Lat = &lat
	m.doc.Lng = &lng
	m.exists = true
	return nil
}

func (m *MemoryStore) WriteAlarm(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Alert = on
	m.exists = true
	return nil
}

func (m *MemoryStore) Close(ctx context.Context) error { return nil }
