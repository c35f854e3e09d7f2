// Package mongo implements capability.StoreBackend against MongoDB,
// persisting the same record kinds snapshot.json holds (spec.md §4.9,
// §11) as a durable alternative for deployments that want the Store to
// survive a process restart without a file-based snapshot.
package mongo

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	registrymigrate "github.com/nodenestor/hiveminddb/internal/registry/migrate"
	registrystore "github.com/nodenestor/hiveminddb/internal/registry/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const databaseName = "hiveminddb"

func init() {
	registrystore.Register(registrystore.Plugin{Name: "mongo", Loader: load})
	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &migrator{}})
}

func connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

type migrator struct{}

func (m *migrator) Name() string { return "mongo" }

// Migrate is a no-op: Mongo collections and indexes are created on first
// write, and the record shapes here carry no foreign-key or uniqueness
// constraint that needs declaring up front.
func (m *migrator) Migrate(ctx context.Context) error { return nil }

func load(ctx context.Context) (capability.StoreBackend, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RTDBURL == "" {
		return nil, fmt.Errorf("mongo: RTDBURL is required")
	}
	client, err := connect(ctx, cfg.RTDBURL)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	return &Store{db: client.Database(databaseName)}, nil
}

// Store is a capability.StoreBackend backed by MongoDB, one collection
// per record kind, storing model types directly with the driver's default
// field mapping (the model types carry no bson tags).
type Store struct {
	db *mongo.Database
}

func (s *Store) Name() string { return "mongo" }

func (s *Store) Save(ctx context.Context, snap capability.StoreSnapshot) error {
	if err := replaceCollection(ctx, s.db.Collection("memories"), toDocs(snap.Memories)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("history"), toDocs(snap.History)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("entities"), toDocs(snap.Entities)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("relationships"), toDocs(snap.Relationships)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("channels"), toDocs(snap.Channels)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("memberships"), toDocs(snap.Memberships)); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s.db.Collection("agents"), toDocs(snap.Agents)); err != nil {
		return err
	}
	return replaceCollection(ctx, s.db.Collection("tasks"), toDocs(snap.Tasks))
}

func (s *Store) Load(ctx context.Context) (capability.StoreSnapshot, bool, error) {
	var snap capability.StoreSnapshot
	if err := findAll(ctx, s.db.Collection("memories"), &snap.Memories); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("history"), &snap.History); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("entities"), &snap.Entities); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("relationships"), &snap.Relationships); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("channels"), &snap.Channels); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("memberships"), &snap.Memberships); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("agents"), &snap.Agents); err != nil {
		return snap, false, err
	}
	if err := findAll(ctx, s.db.Collection("tasks"), &snap.Tasks); err != nil {
		return snap, false, err
	}
	found := len(snap.Memories) > 0 || len(snap.Entities) > 0 || len(snap.Agents) > 0 || len(snap.Tasks) > 0
	return snap, found, nil
}

// toDocs copies items into the []interface{} that InsertMany takes. It
// sets no _id, so Mongo generates one per inserted document.
func toDocs[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

// replaceCollection drops every existing document and inserts docs fresh,
// mirroring postgres.replaceAll: Save runs once per snapshot interval over
// a modest record count, so a full replace is simpler than a diff.
func replaceCollection(ctx context.Context, coll *mongo.Collection, docs []interface{}) error {
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, out *[]T) error {
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}
