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

package devnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/blinklabs-io/warehouse/gateway"
)

const maxRequestBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type TransferRequest struct {
	ClassID  string `json:"class_id"`
	TokenID  string `json:"token_id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

type errorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type handler struct {
	backend Backend
	logger  *slog.Logger
}

// Handler returns the admin routes for the local chain services. They are
// mounted under /devnet/ in dev run mode only
func Handler(backend Backend, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	h := &handler{
		backend: backend,
		logger:  logger.With("component", "devnet"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devnet/markers/{addr}", h.handleGetMarker)
	mux.HandleFunc("PUT /devnet/markers/{addr}/access", h.handleGrantAccess)
	mux.HandleFunc("DELETE /devnet/markers/{addr}/access/{address}", h.handleRevokeAccess)
	mux.HandleFunc("PUT /devnet/markers/{addr}/holding", h.handleSetHolding)
	mux.HandleFunc("POST /devnet/nfts/transfer", h.handleTransfer)
	mux.HandleFunc("GET /devnet/classes/{class}", h.handleGetClass)
	mux.HandleFunc("GET /devnet/classes/{class}/nfts", h.handleListTokens)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotTokenOwner),
		errors.Is(err, ErrNotClassOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrClassNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("devnet request failed", "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

func decode(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func (h *handler) handleGetMarker(w http.ResponseWriter, r *http.Request) {
	var ret *MarkerState
	err := View(r.Context(), h.backend, func(s *Session) error {
		var err error
		ret, err = s.Marker(r.PathValue("addr"))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleGrantAccess sets the grant of one address on a marker
func (h *handler) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	var grant gateway.AccessGrant
	if err := decode(w, r, &grant); err != nil {
		h.writeError(w, err)
		return
	}
	if grant.Address == "" {
		h.writeError(w, fmt.Errorf("%w: address is required", errBadRequest))
		return
	}
	markerAddr := r.PathValue("addr")
	err := Update(r.Context(), h.backend, func(s *Session) error {
		return s.GrantAccess(markerAddr, grant)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info(
		"granted marker access",
		"marker", markerAddr,
		"address", grant.Address,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	markerAddr := r.PathValue("addr")
	address := r.PathValue("address")
	err := Update(r.Context(), h.backend, func(s *Session) error {
		return s.RevokeAccess(markerAddr, address)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleSetHolding(w http.ResponseWriter, r *http.Request) {
	var balances []gateway.Balance
	if err := decode(w, r, &balances); err != nil {
		h.writeError(w, err)
		return
	}
	markerAddr := r.PathValue("addr")
	err := Update(r.Context(), h.backend, func(s *Session) error {
		return s.SetHolding(markerAddr, balances)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ClassID == "" || req.TokenID == "" || req.Receiver == "" {
		h.writeError(
			w,
			fmt.Errorf("%w: class_id, token_id and receiver are required", errBadRequest),
		)
		return
	}
	var token *Token
	err := Update(r.Context(), h.backend, func(s *Session) error {
		if err := s.TransferToken(req.ClassID, req.TokenID, req.Sender, req.Receiver); err != nil {
			return err
		}
		var err error
		token, err = s.Token(req.ClassID, req.TokenID)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *handler) handleGetClass(w http.ResponseWriter, r *http.Request) {
	var ret *Class
	err := View(r.Context(), h.backend, func(s *Session) error {
		var err error
		ret, err = s.Class(r.PathValue("class"))
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (h *handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	classID := r.PathValue("class")
	var ret []Token
	err := View(r.Context(), h.backend, func(s *Session) error {
		if _, err := s.Class(classID); err != nil {
			return err
		}
		var err error
		ret, err = s.Tokens(classID)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}
