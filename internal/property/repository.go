package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realty-backend/internal/geo"
)

type Repository interface {
	Find(ctx context.Context, filter bson.M, limit, offset int64) ([]Property, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Get(ctx context.Context, id string) (Property, error)
	Create(ctx context.Context, doc bson.M) (string, error)
	Update(ctx context.Context, id string, set bson.M) (Property, error)
	Delete(ctx context.Context, id string) (bool, error)
	DistinctStrings(ctx context.Context, fields ...string) ([]string, error)
	PriceBounds(ctx context.Context) (PriceRange, error)
	MissingCoordinates(ctx context.Context, attemptedBefore time.Time, limit int64) ([]Property, error)
	UpdateCoordinates(ctx context.Context, id string, p geo.Point) error
	MarkCoordinatesAttempted(ctx context.Context, id string, at time.Time) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

var listSort = bson.D{
	{Key: "google_place_user_ratings_total", Value: -1},
	{Key: "createdAt", Value: -1},
}

// idFilter matches ObjectID ids as well as the string ids some imports wrote.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func (r *MongoRepository) Find(ctx context.Context, filter bson.M, limit, offset int64) ([]Property, error) {
	opts := options.Find().SetSort(listSort)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Property, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Property, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, Normalize(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.col.CountDocuments(ctx, filter)
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Property, error) {
	var doc bson.M
	if err := r.col.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		return Property{}, err
	}
	return Normalize(doc), nil
}

func (r *MongoRepository) Create(ctx context.Context, doc bson.M) (string, error) {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Property, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	if err := r.col.FindOneAndUpdate(ctx, idFilter(id), bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return Property{}, err
	}
	return Normalize(doc), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DistinctStrings merges the distinct string values of several alias fields.
// Non-string values (nested configuration documents, numbers) are skipped.
func (r *MongoRepository) DistinctStrings(ctx context.Context, fields ...string) ([]string, error) {
	var out []string
	for _, field := range fields {
		values, err := r.col.Distinct(ctx, field, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("distinct %s: %w", field, err)
		}
		for _, v := range values {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *MongoRepository) PriceBounds(ctx context.Context) (PriceRange, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$configurations"}},
		{{Key: "$match", Value: bson.M{"configurations.BaseProjectPrice": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$configurations.BaseProjectPrice"},
			"max": bson.M{"$max": "$configurations.BaseProjectPrice"},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return PriceRange{}, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return PriceRange{}, err
		}
		return PriceRange{}, nil
	}
	var row bson.M
	if err := cursor.Decode(&row); err != nil {
		return PriceRange{}, err
	}
	minV, _ := toFloat(row["min"])
	maxV, _ := toFloat(row["max"])
	return PriceRange{Min: minV, Max: maxV}, nil
}

const attemptedField = "coordinatesAttemptedAt"

// numericAny matches documents where at least one alias key holds a non-zero number.
func numericAny(keys []string) bson.M {
	or := make(bson.A, 0, len(keys))
	for _, k := range keys {
		or = append(or, bson.M{k: bson.M{"$type": "number", "$ne": 0}})
	}
	return bson.M{"$or": or}
}

// missingCoordinatesFilter selects listings with no numeric latitude/longitude
// pair under any alias key, skipping rows tried at or after attemptedBefore.
func missingCoordinatesFilter(attemptedBefore time.Time) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"$nor": bson.A{
			bson.M{"$and": bson.A{numericAny(latitudeKeys), numericAny(longitudeKeys)}},
		}},
		bson.M{"$or": bson.A{
			bson.M{attemptedField: bson.M{"$exists": false}},
			bson.M{attemptedField: bson.M{"$lt": attemptedBefore}},
		}},
	}}
}

func (r *MongoRepository) MissingCoordinates(ctx context.Context, attemptedBefore time.Time, limit int64) ([]Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, missingCoordinatesFilter(attemptedBefore), opts)
}

func (r *MongoRepository) UpdateCoordinates(ctx context.Context, id string, p geo.Point) error {
	res, err := r.col.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{
		"latitude":  p.Lat,
		"longitude": p.Lng,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoRepository) MarkCoordinatesAttempted(ctx context.Context, id string, at time.Time) error {
	_, err := r.col.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{attemptedField: at}})
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
