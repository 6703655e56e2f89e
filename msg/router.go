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

package msg

import (
	"fmt"

	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/pledge"
)

// Execute runs an execute message against the engine
func Execute(
	e *engine.Engine,
	info engine.Info,
	m *ExecuteMsg,
) (*pledge.Response, error) {
	switch {
	case m.Pledge != nil:
		return e.Pledge(info, m.Pledge.ID, m.Pledge.Amount, m.Pledge.MarkerAddr)
	case m.ApprovePledge != nil:
		return e.ApprovePledge(info, m.ApprovePledge.PledgeID)
	case m.Paydown != nil:
		return e.Paydown(info, m.Paydown.PledgeID)
	case m.ApprovePaydown != nil:
		return e.ApprovePaydown(info, m.ApprovePaydown.PledgeID)
	}
	return nil, fmt.Errorf("%w: empty execute message", pledge.ErrInvalidRequest)
}

// PledgesResponse is the result of a pledges query
type PledgesResponse struct {
	Pledges []pledge.Entry `json:"pledges"`
}

// HistoryResponse is the result of a history query
type HistoryResponse struct {
	ID          string              `json:"id"`
	Transitions []pledge.Transition `json:"transitions"`
}

// Query runs a query message against the engine and returns a JSON-encodable result
func Query(e *engine.Engine, m *QueryMsg) (any, error) {
	switch {
	case m.Pledge != nil:
		return e.QueryPledge(m.Pledge.ID)
	case m.Config != nil:
		return e.QueryConfig()
	case m.ContractInfo != nil:
		return e.QueryContractInfo()
	case m.Pledges != nil:
		var status pledge.Status
		if m.Pledges.Status != "" {
			tmp, err := pledge.ParseStatus(m.Pledges.Status)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", pledge.ErrInvalidRequest, err)
			}
			status = tmp
		}
		entries, err := e.ListPledges(status)
		if err != nil {
			return nil, err
		}
		return PledgesResponse{Pledges: entries}, nil
	case m.History != nil:
		transitions, err := e.PledgeHistory(m.History.ID)
		if err != nil {
			return nil, err
		}
		return HistoryResponse{ID: m.History.ID, Transitions: transitions}, nil
	}
	return nil, fmt.Errorf("%w: empty query message", pledge.ErrInvalidRequest)
}
