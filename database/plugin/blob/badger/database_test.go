// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/blinklabs-io/warehouse/database/plugin/blob"
	"github.com/blinklabs-io/warehouse/database/plugin/blob/badger"
	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newMemoryStore(t *testing.T) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestGetSetDelete(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("pledges/p1"), []byte("one")))
	val, err := store.Get(txn, []byte("pledges/p1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), val)
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("pledges/p1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	_, err = store.Get(txn, []byte("pledges/p1"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Rollback())
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newMemoryStore(t)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())
	// Finished transactions are no longer usable
	_, err := store.Get(txn, []byte("k"))
	require.Error(t, err)

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("k"))
	assert.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestReadOnlyTxn(t *testing.T) {
	store := newMemoryStore(t)
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	assert.ErrorIs(t, store.Set(txn, []byte("k"), []byte("v")), types.ErrReadOnlyTxn)
	assert.ErrorIs(t, store.Delete(txn, []byte("k")), types.ErrReadOnlyTxn)
}

func TestTxnValidation(t *testing.T) {
	store := newMemoryStore(t)
	other := newMemoryStore(t)

	_, err := store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)

	foreign := other.NewTransaction(false)
	defer foreign.Rollback() //nolint:errcheck
	_, err = store.Get(foreign, []byte("k"))
	require.Error(t, err)
}

func TestKeys(t *testing.T) {
	store := newMemoryStore(t)
	txn := store.NewTransaction(true)
	for _, k := range []string{"pledges/b", "pledges/a", "devnet/x"} {
		require.NoError(t, store.Set(txn, []byte(k), []byte("v")))
	}
	keys, err := store.Keys(txn, []byte("pledges/"))
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "pledges/a", string(keys[0]))
	assert.Equal(t, "pledges/b", string(keys[1]))
	require.NoError(t, txn.Commit())
}

func TestCommitTimestamp(t *testing.T) {
	store := newMemoryStore(t)
	_, err := store.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)

	assert.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := badger.New(badger.WithDataDir(dir), badger.WithGcInterval(time.Hour))
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("contract_info"), []byte("x")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())
	// Closing twice is harmless
	require.NoError(t, store.Close())

	store, err = badger.New(badger.WithDataDir(dir), badger.WithGcInterval(0))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := store.Get(txn, []byte("contract_info"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), val)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store, err := badger.New(badger.WithPromRegistry(registry))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	_, err = store.Get(txn, []byte("k"))
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	count, err := testutil.GatherAndCount(registry, "database_blob_writes_total", "database_blob_reads_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPluginRegistered(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", 0))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", uint64(300))
	})
	store, err := blob.New("badger", plugin.Runtime{DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, store.Stop())
}

func TestTuning(t *testing.T) {
	def := badger.DefaultTuning()
	assert.Equal(t, uint64(64<<20), def.BlockCacheSize)
	assert.Equal(t, 5*time.Minute, def.GcInterval)

	tuning := def
	tuning.MemTableSize = 8 << 20
	tuning.GcInterval = 0
	store, err := badger.New(
		badger.WithDataDir(t.TempDir()),
		badger.WithTuning(tuning),
	)
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())
}
