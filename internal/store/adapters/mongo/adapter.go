// Package mongo implementa el backend MongoDB para el store de usuarios de esquema anidado.
// Los campos se direccionan con paths con puntos ("connections.youtube.accessToken").
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

const (
	defaultDatabase   = "connkeeper"
	defaultCollection = "users"
)

func init() {
	store.RegisterDriver(&mongoDriver{})
}

type mongoDriver struct{}

func (d *mongoDriver) Name() string { return "mongo" }

func (d *mongoDriver) Open(ctx context.Context, cfg store.BackendConfig) (store.Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mongo: empty URI")
	}
	opts := options.Client().ApplyURI(cfg.DSN)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConns))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: mongo: connect: %w", repository.ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo: ping failed: %w", repository.ErrStoreUnavailable, err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = defaultDatabase
	}
	collName := cfg.Table
	if collName == "" {
		collName = defaultCollection
	}

	b := &Backend{client: client, coll: client.Database(dbName).Collection(collName)}
	if cfg.EnsureSchema {
		if err := b.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}
	return b, nil
}

// Backend es una colección de usuarios en Mongo.
type Backend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ store.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "mongo" }

func (b *Backend) FindOne(ctx context.Context, field, value string) (store.Document, error) {
	if value == "" {
		return nil, repository.ErrNotFound
	}
	var raw bson.M
	err := b.coll.FindOne(ctx, fieldFilter(field, value)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return normalizeDoc(raw), nil
}

func (b *Backend) Set(ctx context.Context, id string, fields store.Document) error {
	if len(fields) == 0 {
		return fmt.Errorf("mongo: empty update")
	}
	res, err := b.coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (b *Backend) Unset(ctx context.Context, id string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	unset := bson.M{}
	for _, f := range fields {
		unset[f] = ""
	}
	res, err := b.coll.UpdateOne(ctx, idFilter(id), bson.M{"$unset": unset})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (b *Backend) Insert(ctx context.Context, doc store.Document) error {
	doc = store.CloneDocument(doc)
	if store.AsString(doc["_id"]) == "" {
		doc["_id"] = uuid.NewString()
	}
	if _, err := b.coll.InsertOne(ctx, bson.M(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: %w", repository.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *Backend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

// EnsureIndexes crea los índices únicos de username y email.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "profile.username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "profile.email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := b.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo: ensure indexes: %w", err)
	}
	return nil
}
