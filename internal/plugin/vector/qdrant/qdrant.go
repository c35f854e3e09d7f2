// Package qdrant implements capability.VectorIndex against a Qdrant
// collection, as a durable mirror of the in-process embedindex.Index
// (spec.md §11's optional external embedding index).
package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	registrymigrate "github.com/nodenestor/hiveminddb/internal/registry/migrate"
	registryvector "github.com/nodenestor/hiveminddb/internal/registry/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type migrator struct{}

func (m *migrator) Name() string { return "qdrant" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.VectorType != "qdrant" || cfg.QdrantURL == "" {
		return nil
	}
	log.Info("running migration", "name", m.Name())

	conn, err := grpc.NewClient(cfg.QdrantURL, dialOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("qdrant migrate: connect: %w", err)
	}
	defer conn.Close()

	client := pb.NewCollectionsClient(conn)
	name := collectionName(cfg)

	if _, err := client.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name}); err == nil {
		return nil
	}

	size := uint64(1536)
	if cfg.EmbeddingDimension > 0 {
		size = uint64(cfg.EmbeddingDimension)
	}
	_, err = client.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: size, Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant migrate: create collection: %w", err)
	}
	log.Info("created qdrant collection", "name", name)
	return nil
}

func init() {
	registryvector.Register(registryvector.Plugin{Name: "qdrant", Loader: load})
	registrymigrate.Register(registrymigrate.Plugin{Order: 200, Migrator: &migrator{}})
}

func load(ctx context.Context) (capability.VectorIndex, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.QdrantURL == "" {
		return nil, fmt.Errorf("qdrant: QdrantURL is required")
	}
	conn, err := grpc.NewClient(cfg.QdrantURL, dialOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}
	return &Store{
		points:     pb.NewPointsClient(conn),
		conn:       conn,
		collection: collectionName(cfg),
	}, nil
}

// Store is a capability.VectorIndex backed by a Qdrant collection keyed
// on memory id (stored as the point id directly, since qdrant point ids
// accept unsigned integers).
type Store struct {
	points     pb.PointsClient
	conn       *grpc.ClientConn
	collection string
}

func (s *Store) Name() string { return "qdrant" }

func (s *Store) Upsert(ctx context.Context, id uint64, embedding []float32) error {
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points: []*pb.PointStruct{{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: id}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: embedding}}},
		}},
	})
	return err
}

func (s *Store) Remove(ctx context.Context, id uint64) error {
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Num{Num: id}}}},
			},
		},
	})
	return err
}

func (s *Store) Search(ctx context.Context, embedding []float32, limit int) ([]capability.VectorMatch, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(limit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]capability.VectorMatch, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		out = append(out, capability.VectorMatch{ID: pt.GetId().GetNum(), Score: float64(pt.GetScore())})
	}
	return out, nil
}

func dialOptions(cfg *config.Config) []grpc.DialOption {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if strings.TrimSpace(cfg.QdrantAPIKey) != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(apiKeyCreds{key: cfg.QdrantAPIKey}))
	}
	return opts
}

type apiKeyCreds struct{ key string }

func (a apiKeyCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"api-key": a.key}, nil
}
func (a apiKeyCreds) RequireTransportSecurity() bool { return false }

func collectionName(cfg *config.Config) string {
	if cfg != nil && strings.TrimSpace(cfg.QdrantCollection) != "" {
		return cfg.QdrantCollection
	}
	return "hiveminddb-memories"
}
