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

package sqlite

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultVacuumInterval = 24 * time.Hour
	DefaultBusyTimeout    = 5 * time.Second
	metadataFileName      = "metadata.sqlite"
)

// memoryDbCounter gives each in-memory store its own shared-cache database
var memoryDbCounter atomic.Uint64

// Config describes how to open a SQLite metadata store
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir of "" selects a private in-memory database
	DataDir string
	// VacuumInterval of zero disables the periodic VACUUM
	VacuumInterval time.Duration
	BusyTimeout    time.Duration
}

func (c Config) dsn() string {
	if c.DataDir == "" {
		return fmt.Sprintf(
			"file:warehouse-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		)
	}
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		filepath.Join(c.DataDir, metadataFileName),
		c.BusyTimeout.Milliseconds(),
	)
}

// MetadataStoreSqlite keeps the pledge index and transition history in
// SQLite for listing and history queries
type MetadataStoreSqlite struct {
	*gormstore.Store

	config   Config
	logger   *slog.Logger
	stopCh   chan struct{}
	vacuumWg sync.WaitGroup
	stopOnce sync.Once
}

// New opens a store with default tuning
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	return NewWithConfig(Config{
		DataDir:        dataDir,
		Logger:         logger,
		PromRegistry:   promRegistry,
		VacuumInterval: DefaultVacuumInterval,
		BusyTimeout:    DefaultBusyTimeout,
	})
}

func NewWithConfig(cfg Config) (*MetadataStoreSqlite, error) {
	db := &MetadataStoreSqlite{
		config: cfg,
		logger: cfg.Logger,
		stopCh: make(chan struct{}),
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	gormDb, err := gorm.Open(sqlite.Open(cfg.dsn()), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.Store, err = gormstore.New(gormDb, "sqlite", cfg.PromRegistry)
	if err != nil {
		if sqlDb, dbErr := gormDb.DB(); dbErr == nil {
			_ = sqlDb.Close()
		}
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	db.logger.Debug(
		"opened sqlite metadata database",
		"component", "database",
		"data_dir", cfg.DataDir,
	)
	if cfg.DataDir != "" && cfg.VacuumInterval > 0 {
		db.vacuumWg.Add(1)
		go db.vacuumLoop(cfg.VacuumInterval)
	}
	return db, nil
}

func (d *MetadataStoreSqlite) vacuumLoop(interval time.Duration) {
	defer d.vacuumWg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-t.C:
			d.logger.Debug(
				"running vacuum on sqlite metadata database",
				"component", "database",
			)
			if err := d.DB().Exec("VACUUM").Error; err != nil {
				d.logger.Error(
					"failed to free unused space in metadata store",
					"component", "database",
					"error", err,
				)
			}
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Start() error {
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

// Close stops the vacuum loop and closes the connection pool. Calling it
// again is a no-op
func (d *MetadataStoreSqlite) Close() error {
	var err error
	d.stopOnce.Do(func() {
		close(d.stopCh)
		// VACUUM runs to completion before the pool goes away
		d.vacuumWg.Wait()
		if cerr := d.Store.Close(); cerr != nil {
			err = fmt.Errorf("close database handle: %w", cerr)
		}
	})
	return err
}
