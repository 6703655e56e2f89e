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

	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/blinklabs-io/warehouse/pledge"
)

// Ledger is the pledge ledger view of a database bound to one transaction.
// Storage failures are reported as *pledge.InfrastructureError and missing
// records as the matching pledge sentinel errors
type Ledger struct {
	db  *Database
	txn *Txn
}

// Ledger returns a ledger view bound to txn
func (d *Database) Ledger(txn *Txn) *Ledger {
	return &Ledger{db: d, txn: txn}
}

func (l *Ledger) ContractInfo() (*pledge.ContractVersion, error) {
	ret, err := l.db.GetContractInfo(l.txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, pledge.ErrNotInstantiated
		}
		return nil, pledge.NewInfrastructureError("load contract info", err)
	}
	return ret, nil
}

func (l *Ledger) SetContractInfo(info pledge.ContractVersion) error {
	if err := l.db.SetContractInfo(info, l.txn); err != nil {
		return pledge.NewInfrastructureError("save contract info", err)
	}
	return nil
}

func (l *Ledger) Configuration() (*pledge.Configuration, error) {
	ret, err := l.db.GetConfiguration(l.txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, pledge.ErrNotInstantiated
		}
		return nil, pledge.NewInfrastructureError("load configuration", err)
	}
	return ret, nil
}

func (l *Ledger) SetConfiguration(config pledge.Configuration) error {
	if err := l.db.SetConfiguration(config, l.txn); err != nil {
		return pledge.NewInfrastructureError("save configuration", err)
	}
	return nil
}

func (l *Ledger) Pledge(id string) (*pledge.Pledge, error) {
	ret, err := l.db.GetPledge(id, l.txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, pledge.ErrPledgeNotFound
		}
		return nil, pledge.NewInfrastructureError("load pledge", err)
	}
	return ret, nil
}

func (l *Ledger) HasPledge(id string) (bool, error) {
	ok, err := l.db.PledgeExists(id, l.txn)
	if err != nil {
		return false, pledge.NewInfrastructureError("load pledge", err)
	}
	return ok, nil
}

func (l *Ledger) SetPledge(id string, p pledge.Pledge) error {
	if err := l.db.SetPledge(id, p, l.txn); err != nil {
		return pledge.NewInfrastructureError("save pledge", err)
	}
	return nil
}

func (l *Ledger) RecordTransition(t pledge.Transition) error {
	if err := l.db.AddPledgeTransition(t, l.txn); err != nil {
		return pledge.NewInfrastructureError("record transition", err)
	}
	return nil
}

func (l *Ledger) Pledges(status pledge.Status) ([]pledge.Entry, error) {
	ret, err := l.db.GetPledges(status, l.txn)
	if err != nil {
		return nil, pledge.NewInfrastructureError("list pledges", err)
	}
	return ret, nil
}

func (l *Ledger) History(id string) ([]pledge.Transition, error) {
	ret, err := l.db.GetPledgeTransitions(id, l.txn)
	if err != nil {
		return nil, pledge.NewInfrastructureError("load pledge history", err)
	}
	return ret, nil
}
