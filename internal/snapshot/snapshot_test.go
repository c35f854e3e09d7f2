package snapshot

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/registry/encrypt"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/encrypt/dek"
	"github.com/nodenestor/hiveminddb/internal/store"
	"github.com/stretchr/testify/require"
)

func newAllocator() *idalloc.Allocator {
	return idalloc.New(idalloc.KindMemory, idalloc.KindHistory, idalloc.KindEntity,
		idalloc.KindRelationship, idalloc.KindChannel, idalloc.KindMembership, idalloc.KindTask)
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := store.New()
	ids := newAllocator()
	st.Memories.Insert(5, model.Memory{ID: 5, Content: "hello"})
	st.Entities.Insert(2, model.Entity{ID: 2, Name: "alice"})

	eng := New(st, ids, dir, 0)
	require.NoError(t, eng.Save(context.Background()))
	require.FileExists(t, filepath.Join(dir, FileName))

	st2 := store.New()
	ids2 := newAllocator()
	eng2 := New(st2, ids2, dir, 0)
	doc, err := eng2.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Memories, 1)

	m, ok := st2.Memories.Get(5)
	require.True(t, ok)
	require.Equal(t, "hello", m.Content)
	require.Equal(t, uint64(6), ids2.Next(idalloc.KindMemory))
}

func TestRestoreMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	st := store.New()
	ids := newAllocator()
	eng := New(st, ids, dir, 0)
	doc, err := eng.Restore(context.Background())
	require.NoError(t, err)
	require.Empty(t, doc.Memories)
}

func TestRestoreCorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not json"), 0o644))
	st := store.New()
	ids := newAllocator()
	eng := New(st, ids, dir, 0)
	_, err := eng.Restore(context.Background())
	require.Error(t, err)
}

func TestSaveRestoreWithEncryptionProvider(t *testing.T) {
	dir := t.TempDir()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	loader, err := encrypt.Select("dek")
	require.NoError(t, err)
	provider, err := loader(context.Background(), &config.Config{EncryptionKey: key})
	require.NoError(t, err)

	st := store.New()
	ids := newAllocator()
	st.Memories.Insert(9, model.Memory{ID: 9, Content: "classified"})
	eng := New(st, ids, dir, 0, WithEncryption(provider))
	require.NoError(t, eng.Save(context.Background()))

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "classified")

	st2 := store.New()
	ids2 := newAllocator()
	eng2 := New(st2, ids2, dir, 0, WithEncryption(provider))
	_, err = eng2.Restore(context.Background())
	require.NoError(t, err)
	m, ok := st2.Memories.Get(9)
	require.True(t, ok)
	require.Equal(t, "classified", m.Content)
}
