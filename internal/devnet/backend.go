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

package devnet

import (
	"context"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/gateway"
)

// Backend runs maintenance transactions against the warehouse database.
// It is implemented by *warehouse.Host
type Backend interface {
	Database() *database.Database
	Update(context.Context, func(*database.Txn) error) error
	View(context.Context, func(*database.Txn) error) error
}

// Update runs fn against a session bound to a read-write transaction
func Update(ctx context.Context, b Backend, fn func(*Session) error) error {
	return b.Update(ctx, func(txn *database.Txn) error {
		return fn(NewSession(b.Database(), txn))
	})
}

// View runs fn against a session bound to a read-only transaction
func View(ctx context.Context, b Backend, fn func(*Session) error) error {
	return b.View(ctx, func(txn *database.Txn) error {
		return fn(NewSession(b.Database(), txn))
	})
}

// MarkerState is the custodial state of a marker
type MarkerState struct {
	Address string                `json:"address"`
	Access  []gateway.AccessGrant `json:"access"`
	Holding []gateway.Balance     `json:"holding"`
}

// Marker returns the grants and holding of a marker
func (s *Session) Marker(markerAddr string) (*MarkerState, error) {
	access, err := s.MarkerAccess(markerAddr)
	if err != nil {
		return nil, err
	}
	holding, err := s.MarkerHolding(markerAddr)
	if err != nil {
		return nil, err
	}
	return &MarkerState{
		Address: markerAddr,
		Access:  access,
		Holding: holding,
	}, nil
}
