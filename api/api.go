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

// Package api serves the warehouse operations over JSON HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/msg"
	"github.com/blinklabs-io/warehouse/pledge"
)

const defaultListenAddress = ":8080"

// Backend runs warehouse operations. It is implemented by *warehouse.Host
type Backend interface {
	Instantiate(context.Context, engine.Info, *msg.InstantiateMsg) (*pledge.Response, error)
	Execute(context.Context, engine.Info, *msg.ExecuteMsg) (*pledge.Response, error)
	Query(context.Context, *msg.QueryMsg) (any, error)
}

type Config struct {
	ListenAddress string
}

// API is the warehouse HTTP server
type API struct {
	config     Config
	logger     *slog.Logger
	backend    Backend
	httpServer *http.Server
	mounts     []mount
	addr       net.Addr
	mu         sync.Mutex
}

type mount struct {
	pattern string
	handler http.Handler
}

func New(cfg Config, backend Backend, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	return &API{
		config:  cfg,
		logger:  logger,
		backend: backend,
	}
}

// Handler returns the request router
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /api/v1/instantiate", a.handleInstantiate)
	mux.HandleFunc("POST /api/v1/execute", a.handleExecute)
	mux.HandleFunc("POST /api/v1/query", a.handleQuery)
	mux.HandleFunc("GET /api/v1/config", a.handleConfig)
	mux.HandleFunc("GET /api/v1/pledges", a.handleListPledges)
	mux.HandleFunc("GET /api/v1/pledges/{id}", a.handleGetPledge)
	mux.HandleFunc("GET /api/v1/pledges/{id}/history", a.handleHistory)
	for _, m := range a.mounts {
		mux.Handle(m.pattern, m.handler)
	}
	return mux
}

// Mount serves additional routes alongside the API. It must be called
// before Start
func (a *API) Mount(pattern string, handler http.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounts = append(a.mounts, mount{pattern: pattern, handler: handler})
}

// Start binds the listen address and serves in the background until Stop
// is called or ctx is cancelled
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	a.httpServer = server
	a.addr = ln.Addr()
	a.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	a.logger.Info(
		"API listener started",
		"address", ln.Addr().String(),
	)

	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (a *API) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
