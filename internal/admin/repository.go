package admin

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	CreateAdmin(ctx context.Context, a Admin) error
	GetAdminByUsername(ctx context.Context, username string) (Admin, error)
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type MongoRepository struct {
	admins   *mongo.Collection
	sessions *mongo.Collection
}

func NewRepository(admins, sessions *mongo.Collection) *MongoRepository {
	return &MongoRepository{admins: admins, sessions: sessions}
}

func (r *MongoRepository) CreateAdmin(ctx context.Context, a Admin) error {
	_, err := r.admins.InsertOne(ctx, a)
	return err
}

func (r *MongoRepository) GetAdminByUsername(ctx context.Context, username string) (Admin, error) {
	var a Admin
	if err := r.admins.FindOne(ctx, bson.M{"username": username}).Decode(&a); err != nil {
		return Admin{}, err
	}
	return a, nil
}

func (r *MongoRepository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.sessions.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	if err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *MongoRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.sessions.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteExpiredSessions backs up the TTL index, which mongod only sweeps once a minute.
func (r *MongoRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.sessions.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
