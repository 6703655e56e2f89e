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
	"gorm.io/gorm/clause"
)

// StoreMark is a named integer kept beside the pledge index. The commit
// timestamp is the only mark today
type StoreMark struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64
}

func (StoreMark) TableName() string {
	return "store_marks"
}

func (s *Store) mark(name string) (int64, error) {
	var m StoreMark
	err := s.DB().Where("name = ?", name).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A store that never committed reads as zero
		return 0, nil
	}
	return m.Value, err
}

func (s *Store) setMark(name string, value int64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&StoreMark{Name: name, Value: value}).Error
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	return s.mark(types.CommitTimestampKey)
}

func (s *Store) SetCommitTimestamp(ts int64, txn types.Txn) error {
	return s.setMark(types.CommitTimestampKey, ts, txn)
}
