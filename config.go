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

package warehouse

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/warehouse/database"
	"github.com/blinklabs-io/warehouse/internal/devnet"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	chainFactory   ChainFactory
	clock          func() time.Time
	dataDir        string
	blobPlugin     string
	metadataPlugin string
	contract       string
	version        string
	tracing        bool
	tracingStdout  bool
}

func (c *Config) validate() error {
	if c.contract == "" {
		return errors.New("contract address is required")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Host config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new warehouse config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		chainFactory: devnetChain,
		clock:        time.Now,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func devnetChain(db *database.Database, txn *database.Txn) Chain {
	return devnet.NewSession(db, txn)
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. By default, no metrics are registered
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithContractAddress specifies the address the contract acts as when checking custodial access and minting right-tokens
func WithContractAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.contract = addr
	}
}

// WithVersion specifies the version recorded in the contract info at instantiation
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}

// WithChain specifies how to reach the chain services from within a unit of work. The default uses the local devnet
// services stored alongside the contract state
func WithChain(factory ChainFactory) ConfigOptionFunc {
	return func(c *Config) {
		c.chainFactory = factory
	}
}

// WithClock specifies the time source used for pledge history. This defaults to time.Now
func WithClock(clock func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}
