package main

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore keeps the vehicle document in a MongoDB collection keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	docID  string
}

func NewMongoStore(ctx context.Context, uri, database, collection, docID string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		docID:  docID,
	}, nil
}

func (s *MongoStore) Get(ctx context.Context) (VehicleDocument, bool, error) {
	var doc VehicleDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: s.docID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return VehicleDocument{}, false, nil
	}
	if err != nil {
		return VehicleDocument{}, false, fmt.Errorf("mongo find %s: %w", s.docID, err)
	}
	return doc, true, nil
}

func (s *MongoStore) WriteAlarm(ctx context.Context, on bool) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "alert", Value: on}}}}
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: s.docID}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set alert: %w", err)
	}
	return nil
}

func (s *MongoStore) WriteLocation(ctx context.Context, loc LatLng) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "lat", Value: loc.Lat}, {Key: "lng", Value: loc.Lng}}}}
	_, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: s.docID}}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set location: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
