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

	"github.com/blinklabs-io/warehouse/database/models"
	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/blinklabs-io/warehouse/pledge"
)

// GetPledge returns the authoritative pledge record from the blob store
func (d *Database) GetPledge(id string, txn *Txn) (*pledge.Pledge, error) {
	var ret pledge.Pledge
	if err := d.getJSON(types.PledgeKey(id), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// PledgeExists reports whether a pledge record is stored under id
func (d *Database) PledgeExists(id string, txn *Txn) (bool, error) {
	_, err := d.GetPledge(id, txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetPledge writes the pledge record and its index row in the same transaction
func (d *Database) SetPledge(id string, p pledge.Pledge, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	if err := d.setJSON(types.PledgeKey(id), p, txn); err != nil {
		return err
	}
	tmpPledge := models.Pledge{
		PledgeID:        id,
		MarkerAddress:   p.MarkerAddress,
		Status:          p.Status.String(),
		Denom:           p.Amount.Denom,
		Amount:          p.Amount.Amount.String(),
		OriginatorNftID: p.OriginatorNftID,
		LenderNftID:     p.LenderNftID,
	}
	if err := d.Metadata().SetPledge(tmpPledge, txn.Metadata()); err != nil {
		return fmt.Errorf("index pledge: %w", err)
	}
	return nil
}

// GetPledges returns the pledges in ID order, optionally limited to one
// status. The index selects the IDs and the records come from the blob store
func (d *Database) GetPledges(
	status pledge.Status,
	txn *Txn,
) ([]pledge.Entry, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var statusFilter string
	if status != 0 {
		statusFilter = status.String()
	}
	rows, err := d.Metadata().GetPledges(statusFilter, txn.Metadata())
	if err != nil {
		return nil, err
	}
	ret := make([]pledge.Entry, 0, len(rows))
	for _, row := range rows {
		p, err := d.GetPledge(row.PledgeID, txn)
		if err != nil {
			return nil, fmt.Errorf("load indexed pledge %s: %w", row.PledgeID, err)
		}
		ret = append(ret, pledge.Entry{ID: row.PledgeID, Pledge: *p})
	}
	return ret, nil
}

// AddPledgeTransition appends to the pledge history
func (d *Database) AddPledgeTransition(t pledge.Transition, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	tmpTransition := models.PledgeTransition{
		CreatedAt: t.Time,
		PledgeID:  t.PledgeID,
		Operation: string(t.Operation),
		ToStatus:  t.To.String(),
		Sender:    t.Sender,
	}
	if t.From != 0 {
		tmpTransition.FromStatus = t.From.String()
	}
	return d.Metadata().AddPledgeTransition(tmpTransition, txn.Metadata())
}

// GetPledgeTransitions returns the history of a pledge, oldest first
func (d *Database) GetPledgeTransitions(
	id string,
	txn *Txn,
) ([]pledge.Transition, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	rows, err := d.Metadata().GetPledgeTransitions(id, txn.Metadata())
	if err != nil {
		return nil, err
	}
	ret := make([]pledge.Transition, 0, len(rows))
	for _, row := range rows {
		to, err := pledge.ParseStatus(row.ToStatus)
		if err != nil {
			return nil, err
		}
		tmpTransition := pledge.Transition{
			Time:      row.CreatedAt,
			PledgeID:  row.PledgeID,
			Operation: pledge.Operation(row.Operation),
			Sender:    row.Sender,
			To:        to,
		}
		if row.FromStatus != "" {
			from, err := pledge.ParseStatus(row.FromStatus)
			if err != nil {
				return nil, err
			}
			tmpTransition.From = from
		}
		ret = append(ret, tmpTransition)
	}
	return ret, nil
}
