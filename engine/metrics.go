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
	"errors"

	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultSuccess = "success"

// Metrics counts lifecycle operations by final outcome. The owner of the
// unit of work observes after commit or rollback. A nil *Metrics is valid
// and records nothing
type Metrics struct {
	operations *prometheus.CounterVec
}

func NewMetrics(promRegistry prometheus.Registerer) *Metrics {
	if promRegistry == nil {
		return nil
	}
	promautoFactory := promauto.With(promRegistry)
	return &Metrics{
		operations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_engine_operations_total",
				Help: "Pledge lifecycle operations by result",
			},
			[]string{"operation", "result"},
		),
	}
}

func (m *Metrics) Observe(op pledge.Operation, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(string(op), Result(err)).Inc()
}

// Result returns a short label describing the outcome of an operation
func Result(err error) string {
	if err == nil {
		return resultSuccess
	}
	var infraErr *pledge.InfrastructureError
	switch {
	case errors.As(err, &infraErr):
		return "infrastructure"
	case errors.Is(err, pledge.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, pledge.ErrInvalidFunds):
		return "invalid_funds"
	case errors.Is(err, pledge.ErrInvalidCustodialPermissions):
		return "invalid_custodial_permissions"
	case errors.Is(err, pledge.ErrInvalidCustodialHolding):
		return "invalid_custodial_holding"
	case errors.Is(err, pledge.ErrInvalidPledgeStatus):
		return "invalid_status"
	case errors.Is(err, pledge.ErrPledgeNotFound):
		return "not_found"
	case errors.Is(err, pledge.ErrPledgeExists):
		return "exists"
	case errors.Is(err, pledge.ErrCustodialAccountInUse):
		return "custodial_account_in_use"
	case errors.Is(err, pledge.ErrNftClassInUse):
		return "class_in_use"
	case errors.Is(err, pledge.ErrAlreadyInstantiated):
		return "already_instantiated"
	case errors.Is(err, pledge.ErrNotInstantiated):
		return "not_instantiated"
	case errors.Is(err, pledge.ErrInvalidRequest):
		return "invalid_request"
	}
	return "error"
}
