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

package badger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	errTxnFinished     = errors.New("transaction already finished")
	errTxnForeignStore = errors.New("transaction from different store")
)

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *BlobStoreBadger
	tx       *badger.Txn
	update   bool
	finished bool
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.finished = true
	return nil
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.tx.Discard()
	t.finished = true
	return nil
}

// BlobStoreBadger stores contract state in badger. Data is kept in memory
// when no data directory is configured
type BlobStoreBadger struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	metrics      *blobMetrics
	gcStopCh     chan struct{}
	dataDir      string
	tuning       Tuning
	gcWg         sync.WaitGroup
	closeMutex   sync.Mutex
	closed       bool
}

// New creates a new blob store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	db := &BlobStoreBadger{
		tuning: DefaultTuning(),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := db.badgerOptions()
	if err != nil {
		return nil, err
	}
	blobDb, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	db.db = blobDb
	if db.promRegistry != nil {
		db.registerBlobMetrics()
	}
	// Value log GC does not apply to in-memory stores
	if db.dataDir != "" && db.tuning.GcInterval > 0 {
		db.gcStopCh = make(chan struct{})
		db.gcWg.Add(1)
		go db.blobGc(db.tuning.GcInterval, db.gcStopCh)
	}
	db.logger.Debug(
		"opened badger blob store",
		"component", "database",
		"data_dir", db.dataDir,
	)
	return db, nil
}

func (d *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	if d.dataDir == "" {
		return badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(d.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true).
			WithValueThreshold(int64(d.tuning.ValueThreshold)), nil //nolint:gosec
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("create data dir: %w", err)
	}
	opts := badger.DefaultOptions(filepath.Join(d.dataDir, "blob")).
		WithLogger(NewBadgerLogger(d.logger)).
		WithLoggingLevel(badger.WARNING)
	return d.tuning.apply(opts), nil
}

func (d *BlobStoreBadger) blobGc(interval time.Duration, stop <-chan struct{}) {
	defer d.gcWg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			for {
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just ran successfully
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("blob DB: GC failure: %s", err),
						"component", "database",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreBadger) Start() error {
	// Database is already opened in New()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops the GC goroutine and closes the underlying badger DB
func (d *BlobStoreBadger) Close() error {
	d.closeMutex.Lock()
	defer d.closeMutex.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.gcStopCh != nil {
		close(d.gcStopCh)
		d.gcWg.Wait()
	}
	return d.db.Close()
}

// DB returns the database handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	return &badgerTxn{
		store:  d,
		tx:     d.db.NewTransaction(update),
		update: update,
	}
}

func (d *BlobStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	bTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if bTxn.store != d {
		return nil, errTxnForeignStore
	}
	if bTxn.finished {
		return nil, errTxnFinished
	}
	return bTxn, nil
}

// Get retrieves a value within a transaction
func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	d.metrics.incRead()
	item, err := bTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if !bTxn.update {
		return types.ErrReadOnlyTxn
	}
	d.metrics.incWrite()
	return bTxn.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	if !bTxn.update {
		return types.ErrReadOnlyTxn
	}
	d.metrics.incDelete()
	return bTxn.tx.Delete(key)
}

// Keys returns the keys with the given prefix, including keys written earlier
// in the same transaction
func (d *BlobStoreBadger) Keys(txn types.Txn, prefix []byte) ([][]byte, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	iterOpts.Prefix = prefix
	it := bTxn.tx.NewIterator(iterOpts)
	defer it.Close()
	var ret [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		ret = append(ret, it.Item().KeyCopy(nil))
	}
	return ret, nil
}
