package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Properties       *mongo.Collection
	BlogPosts        *mongo.Collection
	BlogAdmins       *mongo.Collection
	ContactInquiries *mongo.Collection
	AdminSessions    *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Properties:       db.Collection("properties"),
		BlogPosts:        db.Collection("blogposts"),
		BlogAdmins:       db.Collection("blogadmins"),
		ContactInquiries: db.Collection("contactinquiries"),
		AdminSessions:    db.Collection("adminsessions"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Properties.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "google_place_user_ratings_total", Value: -1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "configurations.BaseProjectPrice", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.BlogPosts.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "published", Value: 1}, {Key: "publishedAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.BlogAdmins.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.ContactInquiries.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	// expired sessions are reaped by mongod; the middleware also checks expiresAt
	_, err = cols.AdminSessions.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return err
	}

	return nil
}
