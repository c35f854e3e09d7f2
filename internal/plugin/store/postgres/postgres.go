// Package postgres implements capability.StoreBackend against Postgres
// via gorm, persisting the same record kinds snapshot.json holds
// (spec.md §4.9, §11) as a durable alternative for deployments that want
// the Store to survive a process restart without a file-based snapshot.
package postgres

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	registrymigrate "github.com/nodenestor/hiveminddb/internal/registry/migrate"
	registrystore "github.com/nodenestor/hiveminddb/internal/registry/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	registrystore.Register(registrystore.Plugin{Name: "postgres", Loader: load})
	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &migrator{}})
}

func openDB(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
}

type migrator struct{}

func (m *migrator) Name() string { return "postgres" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.StoreType != "postgres" || cfg.RTDBURL == "" {
		return nil
	}
	db, err := openDB(cfg.RTDBURL)
	if err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return db.AutoMigrate(&memoryRow{}, &historyRow{}, &entityRow{}, &relationshipRow{},
		&channelRow{}, &membershipRow{}, &agentRow{}, &taskRow{})
}

func load(ctx context.Context) (capability.StoreBackend, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RTDBURL == "" {
		return nil, fmt.Errorf("postgres: RTDBURL is required")
	}
	db, err := openDB(cfg.RTDBURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Store is a capability.StoreBackend backed by Postgres.
type Store struct {
	db *gorm.DB
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Save(ctx context.Context, snap capability.StoreSnapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceAll(tx, memoryRowsFrom(snap.Memories)); err != nil {
			return err
		}
		if err := replaceAll(tx, historyRowsFrom(snap.History)); err != nil {
			return err
		}
		if err := replaceAll(tx, entityRowsFrom(snap.Entities)); err != nil {
			return err
		}
		if err := replaceAll(tx, relationshipRowsFrom(snap.Relationships)); err != nil {
			return err
		}
		if err := replaceAll(tx, channelRowsFrom(snap.Channels)); err != nil {
			return err
		}
		if err := replaceAll(tx, membershipRowsFrom(snap.Memberships)); err != nil {
			return err
		}
		if err := replaceAll(tx, agentRowsFrom(snap.Agents)); err != nil {
			return err
		}
		return replaceAll(tx, taskRowsFrom(snap.Tasks))
	})
}

func (s *Store) Load(ctx context.Context) (capability.StoreSnapshot, bool, error) {
	var memories []memoryRow
	if err := s.db.WithContext(ctx).Find(&memories).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var history []historyRow
	if err := s.db.WithContext(ctx).Find(&history).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var entities []entityRow
	if err := s.db.WithContext(ctx).Find(&entities).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var rels []relationshipRow
	if err := s.db.WithContext(ctx).Find(&rels).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var channels []channelRow
	if err := s.db.WithContext(ctx).Find(&channels).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var memberships []membershipRow
	if err := s.db.WithContext(ctx).Find(&memberships).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var agents []agentRow
	if err := s.db.WithContext(ctx).Find(&agents).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}
	var tasks []taskRow
	if err := s.db.WithContext(ctx).Find(&tasks).Error; err != nil {
		return capability.StoreSnapshot{}, false, err
	}

	found := len(memories) > 0 || len(entities) > 0 || len(agents) > 0 || len(tasks) > 0
	snap := capability.StoreSnapshot{
		Memories:      memoriesFrom(memories),
		History:       historyFrom(history),
		Entities:      entitiesFrom(entities),
		Relationships: relationshipsFrom(rels),
		Channels:      channelsFrom(channels),
		Memberships:   membershipsFrom(memberships),
		Agents:        agentsFrom(agents),
		Tasks:         tasksFrom(tasks),
	}
	return snap, found, nil
}

// replaceAll truncates rows's table and re-inserts every element. Save
// runs once per snapshot interval over a modest record count (spec.md
// §4.9's target scale), so a full replace is simpler and just as correct
// as a row-by-row diff.
func replaceAll[T any](tx *gorm.DB, rows []T) error {
	if err := tx.Where("1 = 1").Delete(new(T)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, 200).Error
}
