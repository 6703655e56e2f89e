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
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/warehouse/database/types"
	"github.com/blinklabs-io/warehouse/pledge"
)

// getJSON loads and decodes a blob value. Missing keys are reported as
// types.ErrBlobKeyNotFound
func (d *Database) getJSON(key []byte, dest any, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	val, err := d.Blob().Get(txn.Blob(), key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (d *Database) setJSON(key []byte, val any, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return d.Blob().Set(txn.Blob(), key, data)
}

// GetContractInfo returns the stored contract name and version
func (d *Database) GetContractInfo(txn *Txn) (*pledge.ContractVersion, error) {
	var ret pledge.ContractVersion
	if err := d.getJSON([]byte(types.ContractInfoKey), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SetContractInfo stores the contract name and version
func (d *Database) SetContractInfo(
	info pledge.ContractVersion,
	txn *Txn,
) error {
	return d.setJSON([]byte(types.ContractInfoKey), info, txn)
}

// GetConfiguration returns the configuration saved at instantiation
func (d *Database) GetConfiguration(txn *Txn) (*pledge.Configuration, error) {
	var ret pledge.Configuration
	if err := d.getJSON([]byte(types.ContractConfigKey), &ret, txn); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SetConfiguration stores the contract configuration
func (d *Database) SetConfiguration(
	config pledge.Configuration,
	txn *Txn,
) error {
	return d.setJSON([]byte(types.ContractConfigKey), config, txn)
}
