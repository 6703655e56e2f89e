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
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller does not hold the right-token
	// required for a transition
	ErrUnauthorized = errors.New("unauthorized")

	ErrNftClassInUse = errors.New("NFT class already in use")

	ErrInvalidFunds = errors.New(
		"sent funds are not correct for the configured warehouse denom",
	)

	ErrInvalidCustodialPermissions = errors.New(
		"contract does not have marker permissions",
	)

	ErrInvalidCustodialHolding = errors.New(
		"marker is not holding all of its supply",
	)

	ErrInvalidPledgeStatus = errors.New("pledge is not in the correct status")

	ErrPledgeNotFound = errors.New("pledge not found")

	ErrPledgeExists = errors.New("pledge already exists")

	// ErrCustodialAccountInUse is returned when the marker already backs a
	// pledge whose originator token is still outstanding
	ErrCustodialAccountInUse = errors.New("marker already backs a live pledge")

	ErrAlreadyInstantiated = errors.New("contract already instantiated")

	ErrNotInstantiated = errors.New("contract not instantiated")

	ErrInvalidRequest = errors.New("invalid request")
)

// InfrastructureError wraps failures from the store or an external query service
type InfrastructureError struct {
	Err error
	Op  string
}

func NewInfrastructureError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}
