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

package api

import (
	"encoding/json"

	"github.com/blinklabs-io/warehouse/pledge"
)

// ExecuteRequest is the body of POST /api/v1/instantiate and POST /api/v1/execute
type ExecuteRequest struct {
	Sender string          `json:"sender"`
	Funds  []pledge.Coin   `json:"funds,omitempty"`
	Msg    json.RawMessage `json:"msg"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	// Kind is a stable name for the failure
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
