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

import "time"

// Operation names a lifecycle operation as it appears in attributes and history
type Operation string

const (
	OperationInstantiate    Operation = "instantiate"
	OperationPledge         Operation = "pledge"
	OperationApprovePledge  Operation = "approve_pledge"
	OperationPaydown        Operation = "paydown"
	OperationApprovePaydown Operation = "approve_paydown"
)

// Entry is a pledge together with its ID, as returned by listings
type Entry struct {
	ID string `json:"id"`
	Pledge
}

// Transition is one accepted lifecycle operation on a pledge. From is zero
// for the operation that created the pledge
type Transition struct {
	Time      time.Time `json:"time"`
	PledgeID  string    `json:"pledge_id"`
	Operation Operation `json:"operation"`
	Sender    string    `json:"sender"`
	From      Status    `json:"from,omitzero"`
	To        Status    `json:"to"`
}
