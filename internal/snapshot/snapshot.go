// Package snapshot implements the periodic persistence engine (C9):
// serialize the Store to snapshot.json, fsync, atomic rename, with
// optional at-rest encryption and an optional offsite backup upload.
// Restore runs once at startup, before any request traffic is served
// (spec.md §4.9).
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/registry/encrypt"
	"github.com/nodenestor/hiveminddb/internal/store"
)

// FileName is the on-disk snapshot file name within DataDir.
const FileName = "snapshot.json"

// Document is the full on-disk representation of the Store. Embeddings
// are never included — the embedding index is recomputed from Memories on
// restore if an Embedder is configured (spec.md §4.9: "embeddings are
// never snapshotted").
type Document struct {
	Memories      []model.Memory           `json:"memories"`
	History       []model.MemoryHistory    `json:"history"`
	Entities      []model.Entity           `json:"entities"`
	Relationships []model.Relationship     `json:"relationships"`
	Channels      []model.Channel          `json:"channels"`
	Memberships   []model.ChannelMembership `json:"memberships"`
	Agents        []model.Agent            `json:"agents"`
	Tasks         []model.Task             `json:"tasks"`
}

// BackupSink uploads a snapshot document's bytes offsite after a
// successful local write (SPEC_FULL.md §11: the attach/s3store plugin).
type BackupSink interface {
	Upload(ctx context.Context, data []byte) error
}

// Engine periodically serializes a Store to disk and can restore one at
// startup.
type Engine struct {
	store    *store.Store
	ids      *idalloc.Allocator
	dataDir  string
	interval time.Duration
	provider encrypt.Provider
	backup   BackupSink
	backend  capability.StoreBackend
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithEncryption sets the at-rest encryption provider. Absent, snapshots
// are written as plain JSON.
func WithEncryption(p encrypt.Provider) Option { return func(e *Engine) { e.provider = p } }

// WithBackup sets an offsite backup sink invoked after every successful
// local write.
func WithBackup(b BackupSink) Option { return func(e *Engine) { e.backup = b } }

// WithStoreBackend replaces the local snapshot.json file with a durable
// capability.StoreBackend (postgres/mongo) as the Save/Restore target.
// Encryption and offsite backup only apply to the local-file path, since
// postgres/mongo already offer their own at-rest encryption and backup
// story.
func WithStoreBackend(b capability.StoreBackend) Option { return func(e *Engine) { e.backend = b } }

// New creates a snapshot Engine writing to dataDir/snapshot.json on the
// given interval.
func New(st *store.Store, ids *idalloc.Allocator, dataDir string, interval time.Duration, opts ...Option) *Engine {
	e := &Engine{store: st, ids: ids, dataDir: dataDir, interval: interval}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) path() string { return filepath.Join(e.dataDir, FileName) }

// Save serializes the current Store contents and writes them atomically:
// write to a ".tmp" sibling, fsync the file, rename over the final path,
// then fsync the containing directory so the rename itself is durable
// (spec.md §4.9).
func (e *Engine) Save(ctx context.Context) error {
	doc := Document{
		Memories:      e.store.Memories.IterSnapshot(),
		History:       e.store.History.IterSnapshot(),
		Entities:      e.store.Entities.IterSnapshot(),
		Relationships: e.store.Relationships.IterSnapshot(),
		Channels:      e.store.Channels.IterSnapshot(),
		Memberships:   e.store.Memberships.IterSnapshot(),
		Agents:        e.store.Agents.IterSnapshot(),
		Tasks:         e.store.Tasks.IterSnapshot(),
	}

	if e.backend != nil {
		if err := e.backend.Save(ctx, documentToSnapshot(doc)); err != nil {
			return apperr.SnapshotIO("backend save", err)
		}
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return apperr.SnapshotIO("marshal snapshot", err)
	}
	if e.provider != nil {
		data, err = e.provider.Encrypt(data)
		if err != nil {
			return apperr.SnapshotIO("encrypt snapshot", err)
		}
	}

	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return apperr.SnapshotIO("create data dir", err)
	}

	tmpPath := e.path() + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return apperr.SnapshotIO("open temp file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return apperr.SnapshotIO("write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return apperr.SnapshotIO("fsync temp file", err)
	}
	if err := f.Close(); err != nil {
		return apperr.SnapshotIO("close temp file", err)
	}
	if err := os.Rename(tmpPath, e.path()); err != nil {
		return apperr.SnapshotIO("rename snapshot", err)
	}
	if dir, err := os.Open(e.dataDir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}

	if e.backup != nil {
		if err := e.backup.Upload(ctx, data); err != nil {
			log.Warn("snapshot backup upload failed", "err", err)
		}
	}
	return nil
}

// Restore loads snapshot.json (if present) into the Store and advances
// every id allocator counter past the highest id seen in the loaded
// records. A missing file is not an error — a fresh process starts empty.
// A present-but-corrupt file is startup-fatal (spec.md §4.9, §7).
func (e *Engine) Restore(ctx context.Context) (Document, error) {
	if e.backend != nil {
		snap, found, err := e.backend.Load(ctx)
		if err != nil {
			return Document{}, apperr.SnapshotIO("backend load", err)
		}
		if !found {
			return Document{}, nil
		}
		doc := snapshotToDocument(snap)
		loadStore(e.store, doc)
		restoreCounters(e.ids, doc)
		return doc, nil
	}

	data, err := os.ReadFile(e.path())
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return Document{}, apperr.SnapshotIO("read snapshot", err)
	}

	if e.provider != nil {
		data, err = e.provider.Decrypt(data)
		if err != nil {
			return Document{}, apperr.SnapshotCorrupt("decrypt snapshot", err)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, apperr.SnapshotCorrupt("unmarshal snapshot", err)
	}

	loadStore(e.store, doc)
	restoreCounters(e.ids, doc)
	return doc, nil
}

func loadStore(st *store.Store, doc Document) {
	st.Memories.LoadAll(keyBy(doc.Memories, func(m model.Memory) uint64 { return m.ID }))
	st.History.LoadAll(keyBy(doc.History, func(h model.MemoryHistory) uint64 { return h.ID }))
	st.Entities.LoadAll(keyBy(doc.Entities, func(e model.Entity) uint64 { return e.ID }))
	st.Relationships.LoadAll(keyBy(doc.Relationships, func(r model.Relationship) uint64 { return r.ID }))
	st.Channels.LoadAll(keyBy(doc.Channels, func(c model.Channel) uint64 { return c.ID }))
	st.Memberships.LoadAll(keyBy(doc.Memberships, func(m model.ChannelMembership) uint64 { return m.ID }))
	st.Tasks.LoadAll(keyBy(doc.Tasks, func(t model.Task) uint64 { return t.ID }))

	agents := make(map[string]model.Agent, len(doc.Agents))
	for _, a := range doc.Agents {
		agents[a.AgentID] = a
	}
	st.Agents.LoadAll(agents)
}

func keyBy[V any](items []V, key func(V) uint64) map[uint64]V {
	out := make(map[uint64]V, len(items))
	for _, v := range items {
		out[key(v)] = v
	}
	return out
}

func restoreCounters(ids *idalloc.Allocator, doc Document) {
	ids.Restore(idalloc.KindMemory, maxID(doc.Memories, func(m model.Memory) uint64 { return m.ID }))
	ids.Restore(idalloc.KindHistory, maxID(doc.History, func(h model.MemoryHistory) uint64 { return h.ID }))
	ids.Restore(idalloc.KindEntity, maxID(doc.Entities, func(e model.Entity) uint64 { return e.ID }))
	ids.Restore(idalloc.KindRelationship, maxID(doc.Relationships, func(r model.Relationship) uint64 { return r.ID }))
	ids.Restore(idalloc.KindChannel, maxID(doc.Channels, func(c model.Channel) uint64 { return c.ID }))
	ids.Restore(idalloc.KindMembership, maxID(doc.Memberships, func(m model.ChannelMembership) uint64 { return m.ID }))
	ids.Restore(idalloc.KindTask, maxID(doc.Tasks, func(t model.Task) uint64 { return t.ID }))
}

func maxID[V any](items []V, key func(V) uint64) uint64 {
	var max uint64
	for _, v := range items {
		if id := key(v); id > max {
			max = id
		}
	}
	return max
}

func documentToSnapshot(doc Document) capability.StoreSnapshot {
	return capability.StoreSnapshot{
		Memories:      doc.Memories,
		History:       doc.History,
		Entities:      doc.Entities,
		Relationships: doc.Relationships,
		Channels:      doc.Channels,
		Memberships:   doc.Memberships,
		Agents:        doc.Agents,
		Tasks:         doc.Tasks,
	}
}

func snapshotToDocument(snap capability.StoreSnapshot) Document {
	return Document{
		Memories:      snap.Memories,
		History:       snap.History,
		Entities:      snap.Entities,
		Relationships: snap.Relationships,
		Channels:      snap.Channels,
		Memberships:   snap.Memberships,
		Agents:        snap.Agents,
		Tasks:         snap.Tasks,
	}
}

// Run ticks Save every interval until ctx is done, logging but not
// returning write failures so a transient disk error does not crash the
// process (the next tick retries).
func (e *Engine) Run(ctx context.Context) {
	if e.interval <= 0 {
		return
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Save(ctx); err != nil {
				log.Error("periodic snapshot save failed", "err", err)
			}
		}
	}
}
