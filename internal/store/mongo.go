package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore is the production document store.
type MongoStore struct {
	db  *mongo.Database
	now func() time.Time
}

// ConnectMongo dials the cluster and selects the database. It does not ping;
// callers decide how hard to retry.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	return NewMongoStore(client.Database(database)), nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name), now: s.now}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// IndexSpec describes one index to create on a collection.
type IndexSpec struct {
	Collection string
	Keys       []string
	Unique     bool
}

func (s *MongoStore) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	for _, spec := range specs {
		keys := bson.D{}
		for _, k := range spec.Keys {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		model := mongo.IndexModel{Keys: keys}
		if spec.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.db.Collection(spec.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s%v: %w", spec.Collection, spec.Keys, err)
		}
	}
	return nil
}

type mongoCollection struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (c *mongoCollection) Get(ctx context.Context, id string, out any) error {
	err := c.coll.FindOne(ctx, bson.M{IDField: id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) GetMany(ctx context.Context, ids []string, out any) error {
	if len(ids) == 0 {
		return nil
	}
	cursor, err := c.coll.Find(ctx, bson.M{IDField: bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (c *mongoCollection) Query(ctx context.Context, q Query, out any) (int64, error) {
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return 0, err
	}

	total, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}

	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: IDField, Value: 1}})
	}
	if q.Offset > 0 {
		findOptions.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := c.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)
	return total, cursor.All(ctx, out)
}

func (c *mongoCollection) Add(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", c.coll.Name(), ErrDuplicate)
	}
	return err
}

func (c *mongoCollection) AddMany(ctx context.Context, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := c.coll.InsertMany(ctx, docs)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", c.coll.Name(), ErrDuplicate)
	}
	return err
}

func (c *mongoCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	result, err := c.coll.UpdateOne(ctx, bson.M{IDField: id}, bson.M{"$set": c.stamped(fields)})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", c.coll.Name(), ErrDuplicate)
		}
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filters []Filter, fields map[string]any) (int64, error) {
	filter, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}
	result, err := c.coll.UpdateMany(ctx, filter, bson.M{"$set": c.stamped(fields)})
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (c *mongoCollection) Delete(ctx context.Context, id string) error {
	result, err := c.coll.DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) stamped(fields map[string]any) bson.M {
	set := make(bson.M, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set["updatedAt"] = c.now()
	return set
}

func buildFilter(filters []Filter) (bson.M, error) {
	if err := checkFilters(filters); err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return bson.M{}, nil
	}
	conds := make(bson.A, 0, len(filters))
	for _, f := range filters {
		conds = append(conds, condition(f))
	}
	if len(conds) == 1 {
		return conds[0].(bson.M), nil
	}
	return bson.M{"$and": conds}, nil
}

func condition(f Filter) bson.M {
	switch f.Op {
	case Ne:
		return bson.M{f.Field: bson.M{"$ne": f.Value}}
	case Lt:
		return bson.M{f.Field: bson.M{"$lt": f.Value}}
	case Lte:
		return bson.M{f.Field: bson.M{"$lte": f.Value}}
	case Gt:
		return bson.M{f.Field: bson.M{"$gt": f.Value}}
	case Gte:
		return bson.M{f.Field: bson.M{"$gte": f.Value}}
	case In:
		return bson.M{f.Field: bson.M{"$in": f.Value}}
	case Contains:
		return bson.M{f.Field: bson.M{"$regex": regexp.QuoteMeta(fmt.Sprint(f.Value)), "$options": "i"}}
	default:
		// Eq, and ArrayContains since equality on an array field matches elements.
		return bson.M{f.Field: f.Value}
	}
}
