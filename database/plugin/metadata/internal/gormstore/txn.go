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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/warehouse/database/types"
	"gorm.io/gorm"
)

var errTxnFinished = errors.New("transaction already finished")

// gormTxn wraps a GORM transaction and implements types.Txn
type gormTxn struct {
	store    *Store
	tx       *gorm.DB
	finished bool
}

func (t *gormTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Commit().Error
}

func (t *gormTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback().Error
}

// Transaction begins a new database transaction
func (s *Store) Transaction() types.Txn {
	return &gormTxn{
		store: s,
		tx:    s.DB().Begin(),
	}
}

// resolveDB returns the GORM handle for a transaction, or the base handle
// when no transaction is given
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.DB(), nil
	}
	sTxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if sTxn.store != s {
		return nil, types.ErrTxnWrongType
	}
	if sTxn.finished {
		return nil, errTxnFinished
	}
	if sTxn.tx.Error != nil {
		return nil, sTxn.tx.Error
	}
	return sTxn.tx, nil
}
