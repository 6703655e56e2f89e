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

// Package gateway holds the stateless authorization checks that run before
// any pledge transition. Every check queries its external service on each
// call; results are never cached because ownership and holdings can change
// between transitions.
package gateway

import (
	"fmt"
	"slices"

	"github.com/blinklabs-io/warehouse/pledge"
)

// Access is a marker permission
type Access int

const (
	AccessUnspecified Access = iota
	AccessMint
	AccessBurn
	AccessDeposit
	AccessWithdraw
	AccessDelete
	AccessAdmin
	AccessTransfer
)

var accessNames = map[Access]string{
	AccessMint:     "mint",
	AccessBurn:     "burn",
	AccessDeposit:  "deposit",
	AccessWithdraw: "withdraw",
	AccessDelete:   "delete",
	AccessAdmin:    "admin",
	AccessTransfer: "transfer",
}

func ParseAccess(s string) (Access, error) {
	for k, v := range accessNames {
		if v == s {
			return k, nil
		}
	}
	return AccessUnspecified, fmt.Errorf("unknown access: %q", s)
}

func (a Access) String() string {
	if name, ok := accessNames[a]; ok {
		return name
	}
	return "unspecified"
}

func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Access) UnmarshalText(data []byte) error {
	if string(data) == "unspecified" {
		*a = AccessUnspecified
		return nil
	}
	tmp, err := ParseAccess(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

type AccessGrant struct {
	Address     string   `json:"address"`
	Permissions []Access `json:"permissions"`
}

// Balance is the holding of a single account within a marker
type Balance struct {
	Address string        `json:"address"`
	Coins   []pledge.Coin `json:"coins"`
}

// MarkerQuerier is the custodial-holding oracle
type MarkerQuerier interface {
	MarkerAccess(markerAddr string) ([]AccessGrant, error)
	MarkerHolding(markerAddr string) ([]Balance, error)
}

// NftQuerier is the right-token registry
type NftQuerier interface {
	// NftOwner returns "" for a token that does not exist
	NftOwner(classID string, tokenID string) (string, error)
	NftClassExists(classID string) (bool, error)
}

type Gateway struct {
	markers MarkerQuerier
	nfts    NftQuerier
}

func New(markers MarkerQuerier, nfts NftQuerier) *Gateway {
	return &Gateway{
		markers: markers,
		nfts:    nfts,
	}
}

// CheckFunds requires exactly one attached coin of denom. When expected is
// non-nil, the coin must also match its denom and amount exactly.
func (g *Gateway) CheckFunds(
	funds []pledge.Coin,
	denom string,
	expected *pledge.Coin,
) error {
	if len(funds) != 1 {
		return fmt.Errorf(
			"%w: expected exactly one coin, got %d",
			pledge.ErrInvalidFunds,
			len(funds),
		)
	}
	coin := funds[0]
	if coin.Denom != denom {
		return fmt.Errorf(
			"%w: expected denom %s, got %s",
			pledge.ErrInvalidFunds,
			denom,
			coin.Denom,
		)
	}
	if !coin.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", pledge.ErrInvalidFunds)
	}
	if expected != nil && !coin.Equal(*expected) {
		return fmt.Errorf(
			"%w: expected %s, got %s",
			pledge.ErrInvalidFunds,
			expected.String(),
			coin.String(),
		)
	}
	return nil
}

// CheckCustodialAccess requires contractAddr to hold a grant on the marker
// that does not include admin access
func (g *Gateway) CheckCustodialAccess(
	markerAddr string,
	contractAddr string,
) error {
	grants, err := g.markers.MarkerAccess(markerAddr)
	if err != nil {
		return pledge.NewInfrastructureError("query marker access", err)
	}
	idx := slices.IndexFunc(grants, func(grant AccessGrant) bool {
		return grant.Address == contractAddr
	})
	if idx < 0 {
		return fmt.Errorf(
			"%w: no access grant for %s on %s",
			pledge.ErrInvalidCustodialPermissions,
			contractAddr,
			markerAddr,
		)
	}
	if slices.Contains(grants[idx].Permissions, AccessAdmin) {
		return fmt.Errorf(
			"%w: admin access grant is not allowed",
			pledge.ErrInvalidCustodialPermissions,
		)
	}
	return nil
}

// CheckSoleHolder requires the marker to be the only holder of its supply
func (g *Gateway) CheckSoleHolder(markerAddr string) error {
	holders, err := g.markers.MarkerHolding(markerAddr)
	if err != nil {
		return pledge.NewInfrastructureError("query marker holding", err)
	}
	if len(holders) != 1 || holders[0].Address != markerAddr {
		return fmt.Errorf(
			"%w: found %d holder(s)",
			pledge.ErrInvalidCustodialHolding,
			len(holders),
		)
	}
	return nil
}

func (g *Gateway) CheckTokenOwner(
	classID string,
	tokenID string,
	expectedOwner string,
) error {
	owner, err := g.nfts.NftOwner(classID, tokenID)
	if err != nil {
		return pledge.NewInfrastructureError("query nft owner", err)
	}
	if owner != expectedOwner {
		return fmt.Errorf(
			"%w: %s is not the owner of %s",
			pledge.ErrUnauthorized,
			expectedOwner,
			tokenID,
		)
	}
	return nil
}

// CheckTokenUnissued fails if the token currently exists. Right-token ids
// are derived from the marker, so an outstanding token means the marker is
// still pledged
func (g *Gateway) CheckTokenUnissued(classID string, tokenID string) error {
	owner, err := g.nfts.NftOwner(classID, tokenID)
	if err != nil {
		return pledge.NewInfrastructureError("query nft owner", err)
	}
	if owner != "" {
		return fmt.Errorf(
			"%w: %s is held by %s",
			pledge.ErrCustodialAccountInUse,
			tokenID,
			owner,
		)
	}
	return nil
}

// CheckClassAvailable fails if the NFT class has already been registered
func (g *Gateway) CheckClassAvailable(classID string) error {
	exists, err := g.nfts.NftClassExists(classID)
	if err != nil {
		return pledge.NewInfrastructureError("query nft class", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", pledge.ErrNftClassInUse, classID)
	}
	return nil
}
