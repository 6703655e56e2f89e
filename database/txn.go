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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database/types"
)

var (
	// ErrPartialCommit means the blob store committed but the metadata store
	// did not. The commit timestamps then disagree until repaired
	ErrPartialCommit = errors.New("partial commit")
	ErrTxnFinished   = errors.New("transaction already finished")
)

// Txn spans one blob transaction and one metadata transaction. Both commit
// or both roll back
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	started     time.Time
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:          db,
		readWrite:   readWrite,
		started:     time.Now(),
		blobTxn:     db.Blob().NewTransaction(readWrite),
		metadataTxn: db.Metadata().Transaction(),
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// Do runs fn and commits. An error from fn rolls everything back and is
// returned unchanged unless the rollback fails too
func (t *Txn) Do(fn func(*Txn) error) error {
	t.lock.Lock()
	finished := t.finished
	t.lock.Unlock()
	if finished {
		return ErrTxnFinished
	}
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit stamps both stores with the same commit timestamp and commits the
// blob store first, so a failure there leaves the metadata untouched
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// Read-only transactions only need their resources freed
	if !t.readWrite {
		return t.rollback()
	}
	if err := t.db.stampCommit(t, t.db.now().UnixMilli()); err != nil {
		_ = t.abort()
		t.db.metrics.observeCommit(commitResultFailed, t.started)
		return fmt.Errorf("failed to update commit timestamp: %w", err)
	}
	t.finished = true
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.db.metrics.observeCommit(commitResultFailed, t.started)
		return fmt.Errorf("blob commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.db.logger.Error(
			"blob store committed but metadata store did not",
			"component", "database",
			"error", err,
		)
		t.db.metrics.observeCommit(commitResultPartial, t.started)
		return fmt.Errorf("%w: metadata: %w", ErrPartialCommit, err)
	}
	t.db.metrics.observeCommit(commitResultCommitted, t.started)
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	if t.readWrite {
		t.db.metrics.observeCommit(commitResultRolledBack, t.started)
	}
	return t.abort()
}

// abort discards both store transactions
func (t *Txn) abort() error {
	t.finished = true
	return errors.Join(
		wrapErr("blob rollback", t.blobTxn.Rollback()),
		wrapErr("metadata rollback", t.metadataTxn.Rollback()),
	)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Release rolls back anything not yet committed. Errors are logged, so it
// can be deferred
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
