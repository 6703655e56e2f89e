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

package postgres

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
)

var defaultServer = gormstore.Server{
	Host:     "localhost",
	Port:     5432,
	User:     "postgres",
	Database: "warehouse",
	TLSMode:  "disable",
	TimeZone: "UTC",
}

// MetadataStorePostgres keeps the pledge index in Postgres. The connection
// is opened in Start()
type MetadataStorePostgres struct {
	*gormstore.Store

	promRegistry prometheus.Registerer
	logger       *slog.Logger
	server       gormstore.Server
}

type PostgresOptionFunc func(*MetadataStorePostgres)

func WithLogger(logger *slog.Logger) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.promRegistry = registry
	}
}

// WithServer sets the connection settings. Unset fields keep their defaults
func WithServer(server gormstore.Server) PostgresOptionFunc {
	return func(m *MetadataStorePostgres) {
		m.server = server
	}
}

func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	db := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(db)
	}
	db.server = db.server.WithDefaults(defaultServer)
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// connString returns the configured DSN, or builds a keyword/value one
func (d *MetadataStorePostgres) connString() string {
	if dsn := strings.TrimSpace(d.server.DSN); dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + d.server.Host,
		"user=" + d.server.User,
		"password=" + d.server.Password,
		"dbname=" + d.server.Database,
		"port=" + strconv.FormatUint(uint64(d.server.Port), 10),
		"sslmode=" + d.server.TLSMode,
	}
	if d.server.TimeZone != "" {
		parts = append(parts, "TimeZone="+d.server.TimeZone)
	}
	return strings.Join(parts, " ")
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	metadataDb, err := gormstore.OpenPool(postgres.Open(d.connString()))
	if err != nil {
		return err
	}
	d.Store, err = gormstore.NewOnPool(
		metadataDb,
		"postgres",
		d.logger,
		d.server,
		d.promRegistry,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}

// Close closes the connection pool if Start() succeeded
func (d *MetadataStorePostgres) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
