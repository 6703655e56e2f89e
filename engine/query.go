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

package engine

import (
	"github.com/blinklabs-io/warehouse/pledge"
)

// QueryPledge returns the stored pledge
func (e *Engine) QueryPledge(id string) (*pledge.Pledge, error) {
	if id == "" {
		return nil, pledge.ErrInvalidRequest
	}
	return e.store.Pledge(id)
}

// QueryConfig returns the contract configuration
func (e *Engine) QueryConfig() (*pledge.Configuration, error) {
	return e.store.Configuration()
}

// QueryContractInfo returns the contract name and version
func (e *Engine) QueryContractInfo() (*pledge.ContractVersion, error) {
	return e.store.ContractInfo()
}

// ListPledges returns pledges in ID order, optionally filtered by status
func (e *Engine) ListPledges(status pledge.Status) ([]pledge.Entry, error) {
	if _, err := e.store.Configuration(); err != nil {
		return nil, err
	}
	return e.store.Pledges(status)
}

// PledgeHistory returns the transitions of a pledge, oldest first
func (e *Engine) PledgeHistory(id string) ([]pledge.Transition, error) {
	if _, err := e.QueryPledge(id); err != nil {
		return nil, err
	}
	return e.store.History(id)
}
