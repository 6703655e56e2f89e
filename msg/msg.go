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

// Package msg decodes inbound warehouse requests and routes them to the
// engine. Execute and query messages are externally tagged JSON objects with
// exactly one key naming the operation.
package msg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/warehouse/pledge"
)

type InstantiateMsg struct {
	Denom      string `json:"denom"`
	NftClassID string `json:"nft_class_id"`
}

type PledgeMsg struct {
	ID         string      `json:"id"`
	Amount     pledge.Coin `json:"amount"`
	MarkerAddr string      `json:"marker_addr"`
}

// PledgeRef names an existing pledge
type PledgeRef struct {
	PledgeID string `json:"pledge_id"`
}

type ExecuteMsg struct {
	Pledge         *PledgeMsg `json:"pledge,omitempty"`
	ApprovePledge  *PledgeRef `json:"approve_pledge,omitempty"`
	Paydown        *PledgeRef `json:"paydown,omitempty"`
	ApprovePaydown *PledgeRef `json:"approve_paydown,omitempty"`
}

// Operation returns the operation the message requests
func (m ExecuteMsg) Operation() pledge.Operation {
	switch {
	case m.Pledge != nil:
		return pledge.OperationPledge
	case m.ApprovePledge != nil:
		return pledge.OperationApprovePledge
	case m.Paydown != nil:
		return pledge.OperationPaydown
	case m.ApprovePaydown != nil:
		return pledge.OperationApprovePaydown
	}
	return ""
}

// PledgeID returns the pledge the message refers to
func (m ExecuteMsg) PledgeID() string {
	switch {
	case m.Pledge != nil:
		return m.Pledge.ID
	case m.ApprovePledge != nil:
		return m.ApprovePledge.PledgeID
	case m.Paydown != nil:
		return m.Paydown.PledgeID
	case m.ApprovePaydown != nil:
		return m.ApprovePaydown.PledgeID
	}
	return ""
}

func (m ExecuteMsg) variants() int {
	ret := 0
	for _, set := range []bool{
		m.Pledge != nil,
		m.ApprovePledge != nil,
		m.Paydown != nil,
		m.ApprovePaydown != nil,
	} {
		if set {
			ret++
		}
	}
	return ret
}

type Empty struct{}

type PledgeQuery struct {
	ID string `json:"id"`
}

type PledgesQuery struct {
	// Status optionally filters the listing by pledge status name
	Status string `json:"status,omitempty"`
}

type QueryMsg struct {
	Pledge       *PledgeQuery  `json:"pledge,omitempty"`
	Config       *Empty        `json:"config,omitempty"`
	ContractInfo *Empty        `json:"contract_info,omitempty"`
	Pledges      *PledgesQuery `json:"pledges,omitempty"`
	History      *PledgeQuery  `json:"history,omitempty"`
}

func (m QueryMsg) variants() int {
	ret := 0
	for _, set := range []bool{
		m.Pledge != nil,
		m.Config != nil,
		m.ContractInfo != nil,
		m.Pledges != nil,
		m.History != nil,
	} {
		if set {
			ret++
		}
	}
	return ret
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", pledge.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after message", pledge.ErrInvalidRequest)
	}
	return nil
}

func ParseInstantiateMsg(data []byte) (*InstantiateMsg, error) {
	var ret InstantiateMsg
	if err := decodeStrict(data, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func ParseExecuteMsg(data []byte) (*ExecuteMsg, error) {
	var ret ExecuteMsg
	if err := decodeStrict(data, &ret); err != nil {
		return nil, err
	}
	if n := ret.variants(); n != 1 {
		return nil, fmt.Errorf(
			"%w: expected exactly one execute operation, got %d",
			pledge.ErrInvalidRequest,
			n,
		)
	}
	return &ret, nil
}

func ParseQueryMsg(data []byte) (*QueryMsg, error) {
	var ret QueryMsg
	if err := decodeStrict(data, &ret); err != nil {
		return nil, err
	}
	if n := ret.variants(); n != 1 {
		return nil, fmt.Errorf(
			"%w: expected exactly one query, got %d",
			pledge.ErrInvalidRequest,
			n,
		)
	}
	return &ret, nil
}
