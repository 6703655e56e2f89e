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
	"fmt"

	"github.com/blinklabs-io/warehouse/gateway"
)

// GrantAccess sets the access grant of an address on a marker, replacing
// any grant the address already holds
func (s *Session) GrantAccess(markerAddr string, grant gateway.AccessGrant) error {
	grants, err := s.MarkerAccess(markerAddr)
	if err != nil {
		return err
	}
	replaced := false
	for i := range grants {
		if grants[i].Address == grant.Address {
			grants[i] = grant
			replaced = true
		}
	}
	if !replaced {
		grants = append(grants, grant)
	}
	return s.set(markerAccessKey(markerAddr), grants)
}

// RevokeAccess removes every grant held by address on a marker
func (s *Session) RevokeAccess(markerAddr string, address string) error {
	grants, err := s.MarkerAccess(markerAddr)
	if err != nil {
		return err
	}
	tmp := grants[:0]
	for _, grant := range grants {
		if grant.Address != address {
			tmp = append(tmp, grant)
		}
	}
	return s.set(markerAccessKey(markerAddr), tmp)
}

// SetHolding replaces the holders of a marker's supply
func (s *Session) SetHolding(markerAddr string, balances []gateway.Balance) error {
	return s.set(markerHoldingKey(markerAddr), balances)
}

// TransferToken moves a token from sender to receiver
func (s *Session) TransferToken(
	classID string,
	tokenID string,
	sender string,
	receiver string,
) error {
	token, err := s.Token(classID, tokenID)
	if err != nil {
		return err
	}
	if token.Owner != sender {
		return fmt.Errorf(
			"%w: %s does not own %s/%s",
			ErrNotTokenOwner,
			sender,
			classID,
			tokenID,
		)
	}
	token.Owner = receiver
	return s.set(tokenKey(classID, tokenID), token)
}
