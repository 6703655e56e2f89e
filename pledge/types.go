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

package pledge

import (
	"encoding/json"
	"fmt"
)

const (
	ContractName = "warehouse"

	// Asset class metadata used when creating the right-token class
	AssetClassName        = "WSC"
	AssetClassSymbol      = "WSC"
	AssetClassDescription = "Warehouse pledge right-tokens"
)

// Status is the lifecycle state of a pledge. The numeric order of the values
// is the only order a pledge may move through.
type Status uint8

const (
	StatusPledged Status = iota + 1
	StatusApproved
	StatusPaydownRequested
	StatusPaydownApproved
)

var statusNames = map[Status]string{
	StatusPledged:          "pledged",
	StatusApproved:         "approved",
	StatusPaydownRequested: "paydown_requested",
	StatusPaydownApproved:  "paydown_approved",
}

func ParseStatus(s string) (Status, error) {
	for k, v := range statusNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pledge status: %q", s)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// CanAdvanceTo reports whether next immediately follows s
func (s Status) CanAdvanceTo(next Status) bool {
	return s.Valid() && next.Valid() && next == s+1
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid pledge status: %d", uint8(s))
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var tmp string
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	parsed, err := ParseStatus(tmp)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Configuration is written once at instantiation and only read afterward
type Configuration struct {
	Denom      string `json:"denom"`
	NftClassID string `json:"nft_class_id"`
}

// ContractVersion identifies the contract code that owns the stored state
type ContractVersion struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

type Pledge struct {
	Amount          Coin   `json:"amount"`
	MarkerAddress   string `json:"marker_address"`
	OriginatorNftID string `json:"originator_nft_id"`
	LenderNftID     string `json:"lender_nft_id,omitempty"`
	Status          Status `json:"status"`
}

// Advance moves the pledge to next, refusing anything but the immediate successor
func (p *Pledge) Advance(next Status) error {
	if !p.Status.CanAdvanceTo(next) {
		return fmt.Errorf(
			"%w: cannot move from %s to %s",
			ErrInvalidPledgeStatus,
			p.Status,
			next,
		)
	}
	p.Status = next
	return nil
}

type Role string

const (
	RoleOriginator Role = "ORIGINATOR"
	RoleLender     Role = "LENDER"
)

// TokenID derives the right-token ID for a role on a custodial account
func TokenID(contractAddr string, markerAddr string, role Role) string {
	return fmt.Sprintf("%s.%s.%s", contractAddr, markerAddr, role)
}
