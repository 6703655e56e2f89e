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

package gormstore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/warehouse/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Server holds the connection settings of a networked metadata database
type Server struct {
	Host     string
	Port     uint
	User     string
	Password string
	Database string
	TLSMode  string
	TimeZone string
	// DSN replaces all other settings when set
	DSN string
}

// WithDefaults fills unset fields from defaults
func (s Server) WithDefaults(defaults Server) Server {
	if s.Host == "" {
		s.Host = defaults.Host
	}
	if s.Port == 0 {
		s.Port = defaults.Port
	}
	if s.User == "" {
		s.User = defaults.User
	}
	if s.Database == "" {
		s.Database = defaults.Database
	}
	if s.TLSMode == "" {
		s.TLSMode = defaults.TLSMode
	}
	if s.TimeZone == "" {
		s.TimeZone = defaults.TimeZone
	}
	return s
}

// LogAttrs returns the non-secret settings for logging
func (s Server) LogAttrs() []any {
	return []any{
		"host", s.Host,
		"port", s.Port,
		"database", s.Database,
	}
}

// ServerFlags binds Server settings to plugin options
type ServerFlags struct {
	mu       sync.RWMutex
	host     string
	port     uint64
	user     string
	password string
	database string
	tlsMode  string
	timeZone string
	dsn      string
}

// Options resets the flags to defaults and returns the option definitions
// for a plugin registration
func (f *ServerFlags) Options(
	product string,
	defaults Server,
	tlsDescription string,
) []plugin.PluginOption {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.host = defaults.Host
	f.port = uint64(defaults.Port)
	f.user = defaults.User
	// The password never has a default
	f.password = ""
	f.database = defaults.Database
	f.tlsMode = defaults.TLSMode
	f.timeZone = defaults.TimeZone
	f.dsn = ""
	return []plugin.PluginOption{
		{
			Name:         "host",
			Type:         plugin.PluginOptionTypeString,
			Description:  product + " host",
			DefaultValue: defaults.Host,
			Dest:         &(f.host),
		},
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  product + " port",
			DefaultValue: uint64(defaults.Port),
			Dest:         &(f.port),
		},
		{
			Name:         "user",
			Type:         plugin.PluginOptionTypeString,
			Description:  product + " user",
			DefaultValue: defaults.User,
			Dest:         &(f.user),
		},
		{
			Name:         "password",
			Type:         plugin.PluginOptionTypeString,
			Description:  product + " password",
			DefaultValue: "",
			Dest:         &(f.password),
		},
		{
			Name:         "database",
			Type:         plugin.PluginOptionTypeString,
			Description:  product + " database name",
			DefaultValue: defaults.Database,
			Dest:         &(f.database),
		},
		{
			Name:         "ssl-mode",
			Type:         plugin.PluginOptionTypeString,
			Description:  tlsDescription,
			DefaultValue: defaults.TLSMode,
			Dest:         &(f.tlsMode),
		},
		{
			Name:         "timezone",
			Type:         plugin.PluginOptionTypeString,
			Description:  product + " connection time zone",
			DefaultValue: defaults.TimeZone,
			Dest:         &(f.timeZone),
		},
		{
			Name:         "dsn",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Full " + product + " DSN (overrides other options when set)",
			DefaultValue: "",
			Dest:         &(f.dsn),
		},
	}
}

// Server returns the current flag values
func (f *ServerFlags) Server() Server {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Server{
		Host:     f.host,
		Port:     uint(f.port),
		User:     f.user,
		Password: f.password,
		Database: f.database,
		TLSMode:  f.tlsMode,
		TimeZone: f.timeZone,
		DSN:      f.dsn,
	}
}

// OpenPool opens a pooled connection for a networked metadata database
func OpenPool(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// NewOnPool migrates the schema on an open pool, closing the pool on failure
func NewOnPool(
	db *gorm.DB,
	backend string,
	logger *slog.Logger,
	server Server,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	s, err := New(db, backend, promRegistry)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	logger.Info(
		"connected to "+backend+" metadata store",
		append([]any{"component", "database"}, server.LogAttrs()...)...,
	)
	return s, nil
}
