package blog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, post Post) error
	Update(ctx context.Context, id string, set bson.M) (Post, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (Post, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (Post, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Post, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, post Post) error {
	_, err := r.col.InsertOne(ctx, post)
	return err
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Post
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Post{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Post, error) {
	var post Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (Post, error) {
	query := bson.M{"slug": slug}
	if publishedOnly {
		query["published"] = true
	}
	var post Post
	if err := r.col.FindOne(ctx, query).Decode(&post); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Post, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "publishedAt", Value: -1},
			{Key: "createdAt", Value: -1},
		}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, listQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := make([]Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, listQuery(filter))
}

func listQuery(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.PublishedOnly {
		query["published"] = true
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}
	return query
}
