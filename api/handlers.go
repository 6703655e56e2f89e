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
	"errors"
	"fmt"
	"net/http"

	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/msg"
	"github.com/blinklabs-io/warehouse/pledge"
)

const maxRequestBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// statusForError maps an operation error to an HTTP status
func statusForError(err error) int {
	switch {
	case errors.Is(err, pledge.ErrInvalidRequest),
		errors.Is(err, pledge.ErrInvalidFunds):
		return http.StatusBadRequest
	case errors.Is(err, pledge.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, pledge.ErrPledgeNotFound),
		errors.Is(err, pledge.ErrNotInstantiated):
		return http.StatusNotFound
	case errors.Is(err, pledge.ErrPledgeExists),
		errors.Is(err, pledge.ErrCustodialAccountInUse),
		errors.Is(err, pledge.ErrAlreadyInstantiated),
		errors.Is(err, pledge.ErrNftClassInUse),
		errors.Is(err, pledge.ErrInvalidPledgeStatus):
		return http.StatusConflict
	case errors.Is(err, pledge.ErrInvalidCustodialPermissions),
		errors.Is(err, pledge.ErrInvalidCustodialHolding):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"request failed",
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Kind:       engine.Result(err),
		Message:    message,
	})
}

func decodeExecuteRequest(r *http.Request, w http.ResponseWriter) (*ExecuteRequest, error) {
	var req ExecuteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", pledge.ErrInvalidRequest, err)
	}
	if req.Sender == "" {
		return nil, fmt.Errorf("%w: sender is required", pledge.ErrInvalidRequest)
	}
	return &req, nil
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

// handleInstantiate handles POST /api/v1/instantiate
func (a *API) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExecuteRequest(r, w)
	if err != nil {
		a.writeError(w, err)
		return
	}
	m, err := msg.ParseInstantiateMsg(req.Msg)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp, err := a.backend.Instantiate(
		r.Context(),
		engine.Info{Sender: req.Sender, Funds: req.Funds},
		m,
	)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecute handles POST /api/v1/execute
func (a *API) handleExecute(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExecuteRequest(r, w)
	if err != nil {
		a.writeError(w, err)
		return
	}
	m, err := msg.ParseExecuteMsg(req.Msg)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp, err := a.backend.Execute(
		r.Context(),
		engine.Info{Sender: req.Sender, Funds: req.Funds},
		m,
	)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) query(w http.ResponseWriter, r *http.Request, m *msg.QueryMsg) {
	res, err := a.backend.Query(r.Context(), m)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleQuery handles POST /api/v1/query
func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		a.writeError(w, fmt.Errorf("%w: %w", pledge.ErrInvalidRequest, err))
		return
	}
	m, err := msg.ParseQueryMsg(raw)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.query(w, r, m)
}

// handleConfig handles GET /api/v1/config
func (a *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	a.query(w, r, &msg.QueryMsg{Config: &msg.Empty{}})
}

// handleListPledges handles GET /api/v1/pledges?status=
func (a *API) handleListPledges(w http.ResponseWriter, r *http.Request) {
	a.query(w, r, &msg.QueryMsg{
		Pledges: &msg.PledgesQuery{Status: r.URL.Query().Get("status")},
	})
}

// handleGetPledge handles GET /api/v1/pledges/{id}
func (a *API) handleGetPledge(w http.ResponseWriter, r *http.Request) {
	a.query(w, r, &msg.QueryMsg{
		Pledge: &msg.PledgeQuery{ID: r.PathValue("id")},
	})
}

// handleHistory handles GET /api/v1/pledges/{id}/history
func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	a.query(w, r, &msg.QueryMsg{
		History: &msg.PledgeQuery{ID: r.PathValue("id")},
	})
}
