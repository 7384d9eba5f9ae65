package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realty-backend/internal/admin"
	"realty-backend/internal/config"
	"realty-backend/internal/db"
	"realty-backend/internal/property"
)

func main() {
	adminUser := flag.String("admin-user", envOrDefault("ADMIN_USER", "admin"), "blog admin username")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "blog admin email")
	propertiesFile := flag.String("properties", "", "JSON array of property documents to import")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	// the password only comes from the environment so it stays out of shell history
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		svc := admin.NewService(admin.NewRepository(cols.BlogAdmins, cols.AdminSessions), nil, 0, logger)
		a, err := svc.CreateAdmin(ctx, admin.CreateAdminRequest{Username: *adminUser, Email: *adminEmail, Password: password})
		switch {
		case errors.Is(err, admin.ErrUsernameTaken):
			log.Printf("seed admin: %s already exists, skipping", *adminUser)
		case err != nil:
			log.Fatalf("seed admin error for %s: %v", *adminUser, err)
		default:
			log.Printf("seed admin: created %s", a.Username)
		}
	} else {
		log.Printf("seed admin: ADMIN_PASSWORD missing, skipping %s", *adminUser)
	}

	if *propertiesFile != "" {
		n, err := importProperties(ctx, cols.Properties, *propertiesFile)
		if err != nil {
			log.Fatalf("import properties: %v", err)
		}
		log.Printf("import properties: %d upserted", n)
	}

	log.Println("seed completed")
}

// importProperties upserts raw documents keyed by _id, falling back to the project name.
func importProperties(ctx context.Context, col *mongo.Collection, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	count := 0
	for i, doc := range docs {
		filter, ok := importKey(doc)
		if !ok {
			log.Printf("import properties: entry %d has no _id or project name, skipping", i)
			continue
		}
		delete(doc, "_id")
		if _, ok := doc["createdAt"]; !ok {
			doc["createdAt"] = time.Now().UTC()
		}
		update := bson.M{
			"$set":         bson.M(doc),
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		}
		if _, hasID := filter["_id"]; hasID {
			update = bson.M{"$set": bson.M(doc)}
		}
		if _, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return count, fmt.Errorf("entry %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

func importKey(doc map[string]interface{}) (bson.M, bool) {
	if id, ok := doc["_id"].(string); ok && id != "" {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			return bson.M{"_id": oid}, true
		}
		return bson.M{"_id": id}, true
	}
	if name := property.Normalize(bson.M(doc)).ProjectName; name != "" {
		return bson.M{"ProjectName": name}, true
	}
	return nil, false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
