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

// Package warehouse hosts the pledge lifecycle engine. A Host runs each
// request as one serialized unit of work: it opens a read-write database
// transaction, runs the engine, delivers the emitted messages to the chain
// services and commits all of it or none of it. Lifecycle events are
// published only after a successful commit.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/engine"
	"github.com/blinklabs-io/warehouse/event"
	"github.com/blinklabs-io/warehouse/gateway"
	"github.com/blinklabs-io/warehouse/msg"
	"github.com/blinklabs-io/warehouse/pledge"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Chain is the view of the chain services from within one unit of work
type Chain interface {
	gateway.MarkerQuerier
	gateway.NftQuerier
	// Deliver applies emitted messages. An error rolls back the unit
	Deliver([]pledge.Message) error
}

// ChainFactory binds the chain services to a unit's transaction
type ChainFactory func(*database.Database, *database.Txn) Chain

type Host struct {
	db            *database.Database
	eventBus      *event.EventBus
	engineMetrics *engine.Metrics
	metrics       *hostMetrics
	tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
	config        Config
	mu            sync.Mutex
	closeOnce     sync.Once
}

// New opens the database and returns a ready Host
func New(cfg Config) (*Host, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	h := &Host{
		config:        cfg,
		engineMetrics: engine.NewMetrics(cfg.promRegistry),
		metrics:       newHostMetrics(cfg.promRegistry),
	}
	if cfg.tracing {
		if err := h.setupTracing(); err != nil {
			return nil, err
		}
	}
	h.tracer = otel.Tracer(tracerName)
	db, err := database.New(&database.Config{
		Logger:         cfg.logger,
		PromRegistry:   cfg.promRegistry,
		DataDir:        cfg.dataDir,
		BlobPlugin:     cfg.blobPlugin,
		MetadataPlugin: cfg.metadataPlugin,
		Clock:          cfg.clock,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			cfg.logger.Error(
				"blob and metadata stores are out of sync",
				"component", "warehouse",
				"error", err,
			)
		}
		_ = h.runShutdownFuncs()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	h.db = db
	h.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	cfg.logger.Info(
		"warehouse host ready",
		"component", "warehouse",
		"contract", cfg.contract,
		"data_dir", cfg.dataDir,
	)
	return h, nil
}

// Database returns the underlying database
func (h *Host) Database() *database.Database {
	return h.db
}

// EventBus returns the bus lifecycle events are published on
func (h *Host) EventBus() *event.EventBus {
	return h.eventBus
}

// ContractAddress returns the address the contract acts as
func (h *Host) ContractAddress() string {
	return h.config.contract
}

// recordingStore remembers the transitions recorded during a unit so they
// can be published after commit
type recordingStore struct {
	engine.Store
	transitions []pledge.Transition
}

func (s *recordingStore) RecordTransition(t pledge.Transition) error {
	if err := s.Store.RecordTransition(t); err != nil {
		return err
	}
	s.transitions = append(s.transitions, t)
	return nil
}

type unitFunc func(*engine.Engine) (*pledge.Response, error)

// publishFunc emits the events of a committed unit. It runs before the writer
// lock is released so events of successive units keep their commit order
type publishFunc func(resp *pledge.Response, transitions []pledge.Transition)

// run executes one unit of work under the writer lock
func (h *Host) run(
	ctx context.Context,
	op pledge.Operation,
	fn unitFunc,
	publish publishFunc,
) (*pledge.Response, error) {
	_, span := h.tracer.Start(
		ctx,
		"warehouse."+string(op),
		trace.WithAttributes(attribute.String("warehouse.operation", string(op))),
	)
	defer span.End()
	if h.metrics != nil {
		h.metrics.inflight.Inc()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.inflight.Dec()
	}
	start := time.Now()
	var resp *pledge.Response
	var store *recordingStore
	err := h.db.Transaction(true).Do(func(txn *database.Txn) error {
		chain := h.config.chainFactory(h.db, txn)
		store = &recordingStore{Store: h.db.Ledger(txn)}
		e := h.newEngine(store, chain)
		tmpResp, err := fn(e)
		if err != nil {
			return err
		}
		if err := chain.Deliver(tmpResp.Messages); err != nil {
			return pledge.NewInfrastructureError("deliver messages", err)
		}
		resp = tmpResp
		return nil
	})
	if h.metrics != nil {
		h.metrics.unitDuration.WithLabelValues(string(op)).
			Observe(time.Since(start).Seconds())
	}
	err = classifyUnitError(err)
	h.engineMetrics.Observe(op, err)
	if err != nil {
		if h.metrics != nil {
			h.metrics.rollbacks.WithLabelValues(string(op)).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, engine.Result(err))
		return nil, err
	}
	h.config.logger.Info(
		"operation applied",
		"component", "warehouse",
		"operation", string(op),
		"messages", len(resp.Messages),
	)
	span.SetAttributes(attribute.Int("warehouse.messages", len(resp.Messages)))
	publish(resp, store.transitions)
	return resp, nil
}

// classifyUnitError wraps storage failures that the engine did not already
// classify, naming the commit stage that failed
func classifyUnitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrPartialCommit):
		return pledge.NewInfrastructureError("partial commit", err)
	case engine.Result(err) == "error":
		return pledge.NewInfrastructureError("commit unit", err)
	}
	return err
}

func (h *Host) newEngine(store engine.Store, chain Chain) *engine.Engine {
	return engine.New(engine.Config{
		Store:   store,
		Gateway: gateway.New(chain, chain),
		Logger:  h.config.logger,
		Env: engine.Env{
			ContractAddress: h.config.contract,
			Time:            h.config.clock(),
		},
		Version: h.config.version,
	})
}

// Instantiate configures the contract and creates the right-token class
func (h *Host) Instantiate(
	ctx context.Context,
	info engine.Info,
	m *msg.InstantiateMsg,
) (*pledge.Response, error) {
	return h.run(
		ctx,
		pledge.OperationInstantiate,
		func(e *engine.Engine) (*pledge.Response, error) {
			return e.Instantiate(info, m.Denom, m.NftClassID)
		},
		func(*pledge.Response, []pledge.Transition) {
			h.eventBus.PublishAsync(event.NewContractInstantiatedEvent(
				pledge.Configuration{Denom: m.Denom, NftClassID: m.NftClassID},
			))
		},
	)
}

// Execute runs a lifecycle operation
func (h *Host) Execute(
	ctx context.Context,
	info engine.Info,
	m *msg.ExecuteMsg,
) (*pledge.Response, error) {
	return h.run(
		ctx,
		m.Operation(),
		func(e *engine.Engine) (*pledge.Response, error) {
			return msg.Execute(e, info, m)
		},
		func(resp *pledge.Response, transitions []pledge.Transition) {
			for _, t := range transitions {
				h.eventBus.PublishAsync(
					event.NewPledgeTransitionEvent(t, resp.Messages),
				)
			}
		},
	)
}

// Query answers a query from committed state
func (h *Host) Query(ctx context.Context, m *msg.QueryMsg) (any, error) {
	_, span := h.tracer.Start(ctx, "warehouse.query")
	defer span.End()
	txn := h.db.Transaction(false)
	defer txn.Release()
	chain := h.config.chainFactory(h.db, txn)
	ret, err := msg.Query(h.newEngine(h.db.Ledger(txn), chain), m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, engine.Result(err))
		return nil, err
	}
	return ret, nil
}

// Update runs fn in a read-write transaction under the writer lock. It is
// used for maintenance of the chain services
func (h *Host) Update(ctx context.Context, fn func(*database.Txn) error) error {
	_, span := h.tracer.Start(ctx, "warehouse.update")
	defer span.End()
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.db.Transaction(true).Do(fn); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// View runs fn in a read-only transaction
func (h *Host) View(ctx context.Context, fn func(*database.Txn) error) error {
	_, span := h.tracer.Start(ctx, "warehouse.view")
	defer span.End()
	txn := h.db.Transaction(false)
	defer txn.Release()
	return fn(txn)
}

func (h *Host) runShutdownFuncs() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var err error
	for _, fn := range h.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	h.shutdownFuncs = nil
	return err
}

// Close stops the event bus, flushes traces and closes the database
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.eventBus != nil {
			h.eventBus.Stop()
		}
		if closeErr := h.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
		err = errors.Join(err, h.runShutdownFuncs())
	})
	return err
}
