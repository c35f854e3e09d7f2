// Package pgvector implements capability.VectorIndex against a Postgres
// database with the pgvector extension, as a durable mirror of the
// in-process embedindex.Index (spec.md §11's optional external embedding
// index).
package pgvector

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	registrymigrate "github.com/nodenestor/hiveminddb/internal/registry/migrate"
	registryvector "github.com/nodenestor/hiveminddb/internal/registry/vector"
	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

//go:embed db/schema.sql
var schemaSQL string

type migrator struct{}

func (m *migrator) Name() string { return "pgvector" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.VectorType != "pgvector" || cfg.RTDBURL == "" {
		return nil
	}
	log.Info("running migration", "name", m.Name())
	db, err := openGormDB(cfg.RTDBURL)
	if err != nil {
		return fmt.Errorf("pgvector migrate: %w", err)
	}
	return db.Exec(schemaSQL).Error
}

func init() {
	registryvector.Register(registryvector.Plugin{Name: "pgvector", Loader: load})
	registrymigrate.Register(registrymigrate.Plugin{Order: 200, Migrator: &migrator{}})
}

func load(ctx context.Context) (capability.VectorIndex, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RTDBURL == "" {
		return nil, fmt.Errorf("pgvector: RTDBURL is required")
	}
	db, err := openGormDB(cfg.RTDBURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector: %w", err)
	}
	return &Store{db: db}, nil
}

// Store is a capability.VectorIndex backed by a pgvector table keyed on
// memory id.
type Store struct {
	db *gorm.DB
}

func (s *Store) Name() string { return "pgvector" }

func (s *Store) Upsert(ctx context.Context, id uint64, embedding []float32) error {
	vec := pgvec.NewVector(embedding)
	return s.db.WithContext(ctx).Exec(`
		INSERT INTO memory_embeddings (memory_id, embedding)
		VALUES (?, ?::vector)
		ON CONFLICT (memory_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		id, vec,
	).Error
}

func (s *Store) Remove(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM memory_embeddings WHERE memory_id = ?", id).Error
}

func (s *Store) Search(ctx context.Context, embedding []float32, limit int) ([]capability.VectorMatch, error) {
	vec := pgvec.NewVector(embedding)
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT memory_id, 1 - (embedding <=> ?::vector) AS score
		FROM memory_embeddings
		ORDER BY embedding <=> ?::vector
		LIMIT ?`,
		vec, vec, limit,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []capability.VectorMatch
	for rows.Next() {
		var m capability.VectorMatch
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			log.Error("pgvector scan error", "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
