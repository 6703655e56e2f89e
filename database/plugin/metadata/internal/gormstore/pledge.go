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
	"fmt"

	"github.com/blinklabs-io/warehouse/database/models"
	"github.com/blinklabs-io/warehouse/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetPledge inserts or updates the index row for a pledge
func (s *Store) SetPledge(
	pledge models.Pledge,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return fmt.Errorf("SetPledge: resolve db: %w", err)
	}
	s.metrics.observe("set_pledge")
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pledge_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at",
			"marker_address",
			"status",
			"denom",
			"amount",
			"originator_nft_id",
			"lender_nft_id",
		}),
	}).Create(&pledge)
	if result.Error != nil {
		return fmt.Errorf("SetPledge: upsert: %w", result.Error)
	}
	return nil
}

// GetPledge returns the index row for a pledge, or nil if not found
func (s *Store) GetPledge(
	pledgeId string,
	txn types.Txn,
) (*models.Pledge, error) {
	var ret models.Pledge
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("GetPledge: resolve db: %w", err)
	}
	s.metrics.observe("get_pledge")
	result := db.Where("pledge_id = ?", pledgeId).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetPledge: query: %w", result.Error)
	}
	return &ret, nil
}

// GetPledges returns the index rows ordered by pledge ID, optionally
// filtered by status
func (s *Store) GetPledges(
	status string,
	txn types.Txn,
) ([]models.Pledge, error) {
	var ret []models.Pledge
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("GetPledges: resolve db: %w", err)
	}
	s.metrics.observe("get_pledges")
	query := db.Order("pledge_id")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, fmt.Errorf("GetPledges: query: %w", result.Error)
	}
	return ret, nil
}

// AddPledgeTransition appends an entry to a pledge's history
func (s *Store) AddPledgeTransition(
	transition models.PledgeTransition,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return fmt.Errorf("AddPledgeTransition: resolve db: %w", err)
	}
	s.metrics.observe("add_pledge_transition")
	if result := db.Create(&transition); result.Error != nil {
		return fmt.Errorf("AddPledgeTransition: insert: %w", result.Error)
	}
	return nil
}

// GetPledgeTransitions returns a pledge's history in the order it happened
func (s *Store) GetPledgeTransitions(
	pledgeId string,
	txn types.Txn,
) ([]models.PledgeTransition, error) {
	var ret []models.PledgeTransition
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("GetPledgeTransitions: resolve db: %w", err)
	}
	s.metrics.observe("get_pledge_transitions")
	result := db.Where("pledge_id = ?", pledgeId).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetPledgeTransitions: query: %w", result.Error)
	}
	return ret, nil
}
