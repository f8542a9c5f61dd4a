package filetable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gality369/simplefs/internal/blockstore"
	"github.com/gality369/simplefs/internal/schema"
	"github.com/stretchr/testify/require"
)

// faultyStore wraps a [blockstore.Store] and fails writes on demand.
type faultyStore struct {
	*blockstore.Store

	mu        sync.Mutex
	failAfter int
	writes    int
	syncs     int
	closes    int
}

func (f *faultyStore) Write(idx int, e schema.Entry) error {
	f.mu.Lock()
	f.writes++
	fail := f.failAfter > 0 && f.writes >= f.failAfter
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("%w: injected write failure at slot %d", blockstore.ErrIO, idx)
	}

	return f.Store.Write(idx, e)
}

func (f *faultyStore) Sync() error {
	f.mu.Lock()
	f.syncs++
	f.mu.Unlock()

	return f.Store.Sync()
}

func (f *faultyStore) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()

	return f.Store.Close()
}

// failWritesFrom makes the n-th write from now, and all after it, fail.
func (f *faultyStore) failWritesFrom(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes = 0
	f.failAfter = n
}

func (f *faultyStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writes
}

func newStore(t *testing.T) (*faultyStore, *blockstore.MemoryDevice) {
	t.Helper()

	dev := blockstore.NewMemoryDevice(schema.ImageSize)

	return &faultyStore{Store: blockstore.NewStore(dev, schema.SlotCount)}, dev
}

func newTable(t *testing.T) (*Table, *faultyStore, *blockstore.MemoryDevice) {
	t.Helper()

	store, dev := newStore(t)
	require.NoError(t, Format(store))

	table, err := Mount(store)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = table.Unmount()
	})

	return table, store, dev
}

// rawEntry decodes a slot straight from device bytes.
func rawEntry(t *testing.T, dev *blockstore.MemoryDevice, idx int) schema.Entry {
	t.Helper()

	raw := dev.Bytes()

	var e schema.Entry
	require.NoError(t, e.UnmarshalBinary(raw[idx*schema.RecordSize:(idx+1)*schema.RecordSize]))

	return e
}

func mustCreate(t *testing.T, table *Table, path string, kind schema.Kind) Handle {
	t.Helper()

	h, err := table.CreatePath(path, kind)
	require.NoError(t, err, "create %s", path)

	return h
}
