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

package event

import (
	"github.com/blinklabs-io/warehouse/pledge"
)

const (
	PledgeTransitionEventType     EventType = "pledge.transition"
	ContractInstantiatedEventType EventType = "contract.instantiated"
)

// PledgeTransitionEvent is published after a lifecycle operation on a
// pledge has been committed
type PledgeTransitionEvent struct {
	Transition pledge.Transition
	Messages   []pledge.Message
}

func NewPledgeTransitionEvent(
	t pledge.Transition,
	msgs []pledge.Message,
) Event {
	evt := NewEvent(
		PledgeTransitionEventType,
		PledgeTransitionEvent{Transition: t, Messages: msgs},
	)
	evt.Key = t.PledgeID
	return evt
}

// ContractInstantiatedEvent is published after the contract configuration
// has been committed
type ContractInstantiatedEvent struct {
	Config pledge.Configuration
}

func NewContractInstantiatedEvent(cfg pledge.Configuration) Event {
	return NewEvent(
		ContractInstantiatedEventType,
		ContractInstantiatedEvent{Config: cfg},
	)
}
