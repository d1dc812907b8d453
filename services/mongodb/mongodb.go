// Package mongodb provides the "mongodb" scheme: objects stored as
// documents of a MongoDB collection through the kv bridge.
//
// Every object is one document with the key as its _id and the payload
// in a single binary field. Listing runs an _id range query, so it
// stays on the collection's built-in index.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry name of this service.
const Scheme = "mongodb"

// connectTimeout bounds the initial connect and ping.
const connectTimeout = 10 * time.Second

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the mongodb service.
type Config struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017".
	// Required.
	URI string `mapstructure:"uri"`

	// Database is the database holding the collection. Required.
	Database string `mapstructure:"database"`

	// Collection is the collection holding the objects. Defaults to
	// "objects".
	Collection string `mapstructure:"collection"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

// document is the stored form of one object.
type document struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// New connects to the server and constructs the accessor. The
// connection is verified with a ping so a bad URI fails here, not on
// first use.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.URI == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "mongodb service requires a uri")
	}
	if cfg.Database == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "mongodb service requires a database")
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "objects"
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening mongodb connection").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, polystore.NewError(polystore.KindConfigInvalid, "pinging mongodb server").WithCause(err)
	}

	s := &store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(collection),
		name:       cfg.Database + "/" + collection,
	}
	return kv.NewBackend(s, cfg.Root), nil
}

type store struct {
	client     *mongo.Client
	collection *mongo.Collection
	name       string
}

func (s *store) Info() kv.Info {
	return kv.Info{
		Scheme:     Scheme,
		Name:       s.name,
		Capability: kv.Capability{Get: true, Set: true, Delete: true, Scan: true},
	}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err)
	}
	return doc.Value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key},
		document{Key: key, Value: value}, options.Replace().SetUpsert(true))
	return storeErr(err)
}

func (s *store) Delete(ctx context.Context, key string) error {
	// Deleting an absent key stays a no-op, so the delete count is not
	// checked.
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key})
	return storeErr(err)
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	// Keys are paths, so a half-open range on the incremented prefix
	// covers exactly the keys below it and keeps the query on the _id
	// index.
	filter := bson.M{"_id": bson.M{"$gte": prefix}}
	if upper := prefixUpper(prefix); upper != "" {
		filter = bson.M{"_id": bson.M{"$gte": prefix, "$lt": upper}}
	}
	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.M{"_id": 1}).SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, storeErr(err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, storeErr(err)
		}
		keys = append(keys, doc.Key)
	}
	if err := cursor.Err(); err != nil {
		return nil, storeErr(err)
	}
	return keys, nil
}

func (s *store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// prefixUpper returns the smallest string greater than every string
// with the given prefix, or "" when no bound exists.
func prefixUpper(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return string(b[:i+1])
		}
	}
	return ""
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return polystore.NewError(polystore.KindInternal, "mongodb operation failed").WithCause(err)
}
