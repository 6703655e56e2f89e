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

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
)

// MySQL error number for an unknown database
const errUnknownDatabase = 1049

var defaultServer = gormstore.Server{
	Host:     "localhost",
	Port:     3306,
	User:     "root",
	Database: "warehouse",
	TimeZone: "UTC",
}

// MetadataStoreMysql keeps the pledge index in MySQL. The connection is
// opened in Start(), creating the database if it does not exist
type MetadataStoreMysql struct {
	*gormstore.Store

	promRegistry prometheus.Registerer
	logger       *slog.Logger
	server       gormstore.Server
}

type MysqlOptionFunc func(*MetadataStoreMysql)

func WithLogger(logger *slog.Logger) MysqlOptionFunc {
	return func(m *MetadataStoreMysql) {
		m.logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) MysqlOptionFunc {
	return func(m *MetadataStoreMysql) {
		m.promRegistry = registry
	}
}

// WithServer sets the connection settings. Unset fields keep their defaults
func WithServer(server gormstore.Server) MysqlOptionFunc {
	return func(m *MetadataStoreMysql) {
		m.server = server
	}
}

func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
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

// connString returns the configured DSN, or builds one with the driver's
// config type
func (d *MetadataStoreMysql) connString() string {
	if dsn := strings.TrimSpace(d.server.DSN); dsn != "" {
		return dsn
	}
	cfg := mysql.NewConfig()
	cfg.User = d.server.User
	cfg.Passwd = d.server.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(
		d.server.Host,
		strconv.FormatUint(uint64(d.server.Port), 10),
	)
	cfg.DBName = d.server.Database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if d.server.TimeZone != "" {
		loc, err := time.LoadLocation(d.server.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Loc = loc
	}
	if d.server.TLSMode != "" {
		cfg.TLSConfig = d.server.TLSMode
	}
	return cfg.FormatDSN()
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	dsn := d.connString()
	metadataDb, err := gormstore.OpenPool(gormmysql.Open(dsn))
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if err := d.createDatabase(dsn); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		metadataDb, err = gormstore.OpenPool(gormmysql.Open(dsn))
		if err != nil {
			return err
		}
	}
	d.Store, err = gormstore.NewOnPool(
		metadataDb,
		"mysql",
		d.logger,
		d.server,
		d.promRegistry,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	return nil
}

// createDatabase connects without selecting a database and creates the
// one named in the DSN
func (d *MetadataStoreMysql) createDatabase(dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	dbName := cfg.DBName
	if dbName == "" {
		return errors.New("no database name in DSN")
	}
	cfg.DBName = ""
	adminDb, err := gormstore.OpenPool(gormmysql.Open(cfg.FormatDSN()))
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	d.logger.Info(
		"creating mysql metadata database",
		"component", "database",
		"database", dbName,
	)
	return adminDb.Exec(
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName),
	).Error
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close closes the connection pool if Start() succeeded
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
