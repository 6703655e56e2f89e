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

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/blinklabs-io/warehouse"
	"github.com/blinklabs-io/warehouse/api"
	"github.com/blinklabs-io/warehouse/internal/config"
	"github.com/blinklabs-io/warehouse/internal/devnet"
	"github.com/blinklabs-io/warehouse/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Node is a running warehouse service: the host, the operation API and the
// metrics listener
type Node struct {
	config        *config.Config
	logger        *slog.Logger
	host          *warehouse.Host
	api           *api.API
	metricsServer *http.Server
	metricsAddr   net.Addr
	stopOnce      sync.Once
}

// New opens the host described by cfg. Metrics are registered with reg
func New(
	cfg *config.Config,
	logger *slog.Logger,
	reg *prometheus.Registry,
) (*Node, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	h, err := warehouse.New(
		warehouse.NewConfig(
			warehouse.WithLogger(logger),
			warehouse.WithDatabasePath(cfg.DatabasePath),
			warehouse.WithBlobPlugin(cfg.BlobPlugin),
			warehouse.WithMetadataPlugin(cfg.MetadataPlugin),
			warehouse.WithContractAddress(cfg.ContractAddress),
			warehouse.WithVersion(version.ContractVersion()),
			warehouse.WithPrometheusRegistry(reg),
			warehouse.WithTracing(cfg.Tracing),
			warehouse.WithTracingStdout(cfg.TracingStdout),
		),
	)
	if err != nil {
		return nil, err
	}
	n := &Node{
		config: cfg,
		logger: logger,
		host:   h,
		api: api.New(
			api.Config{
				ListenAddress: listenAddress(cfg.BindAddr, cfg.ApiPort),
			},
			h,
			logger,
		),
	}
	if cfg.RunMode.IsDevMode() {
		n.api.Mount("/devnet/", devnet.Handler(h, logger))
		logger.Warn(
			"devnet admin API enabled",
			"component", "node",
		)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	n.metricsServer = &http.Server{
		Addr:              listenAddress(cfg.BindAddr, cfg.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return n, nil
}

func listenAddress(bindAddr string, port uint) string {
	return net.JoinHostPort(bindAddr, strconv.FormatUint(uint64(port), 10))
}

// Host returns the warehouse host served by the node
func (n *Node) Host() *warehouse.Host {
	return n.host
}

// APIAddr returns the bound address of the operation API
func (n *Node) APIAddr() net.Addr {
	return n.api.Addr()
}

// MetricsAddr returns the bound address of the metrics listener
func (n *Node) MetricsAddr() net.Addr {
	return n.metricsAddr
}

// Start binds the metrics and API listeners. The listeners run until Stop
// is called or ctx is cancelled
func (n *Node) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", n.metricsServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}
	n.metricsAddr = ln.Addr()
	n.logger.Info(
		"serving prometheus metrics on "+ln.Addr().String(),
		"component", "node",
	)
	go func() {
		if err := n.metricsServer.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			n.logger.Error(
				fmt.Sprintf("metrics listener failed: %s", err),
				"component", "node",
			)
		}
	}()
	if err := n.api.Start(ctx); err != nil {
		_ = n.metricsServer.Close()
		return err
	}
	return nil
}

// Stop shuts down the listeners within the configured shutdown timeout and
// closes the host
func (n *Node) Stop() error {
	var err error
	n.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			n.config.ShutdownTimeoutDuration(),
		)
		defer cancel()
		if stopErr := n.api.Stop(shutdownCtx); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		if stopErr := n.metricsServer.Shutdown(shutdownCtx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("metrics server shutdown: %w", stopErr))
		}
		if stopErr := n.host.Close(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	})
	return err
}

// Run serves until SIGINT or SIGTERM is received
func Run(cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	n, err := New(cfg, logger, reg)
	if err != nil {
		return err
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	if err := n.Start(signalCtx); err != nil {
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error("shutdown errors occurred during error cleanup", "error", stopErr)
		}
		return err
	}
	<-signalCtx.Done()
	logger.Info("signal received, initiating graceful shutdown")
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
