package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore reads and merge-writes the vehicle document in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile, collection, docID string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{
		client: client,
		doc:    client.Collection(collection).Doc(docID),
	}, nil
}

func (s *FirestoreStore) Get(ctx context.Context) (VehicleDocument, bool, error) {
	snap, err := s.doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return VehicleDocument{}, false, nil
	}
	if err != nil {
		return VehicleDocument{}, false, fmt.Errorf("firestore get %s: %w", s.doc.Path, err)
	}
	var doc VehicleDocument
	if err := snap.DataTo(&doc); err != nil {
		return VehicleDocument{}, false, fmt.Errorf("firestore decode %s: %w", s.doc.Path, err)
	}
	return doc, true, nil
}

func (s *FirestoreStore) WriteAlarm(ctx context.Context, on bool) error {
	if _, err := s.doc.Set(ctx, map[string]any{"alert": on}, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore set alert: %w", err)
	}
	return nil
}

func (s *FirestoreStore) WriteLocation(ctx context.Context, loc LatLng) error {
	if _, err := s.doc.Set(ctx, map[string]any{"lat": loc.Lat, "lng": loc.Lng}, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore set location: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}
