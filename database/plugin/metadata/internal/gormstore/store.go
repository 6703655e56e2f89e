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

// Package gormstore holds the pledge index queries shared by the GORM backed
// metadata plugins
package gormstore

import (
	"github.com/blinklabs-io/warehouse/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Store struct {
	db      *gorm.DB
	metrics *metrics
}

// New wraps an open GORM handle, enables tracing and migrates the schema
func New(
	db *gorm.DB,
	backend string,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	s := &Store{
		db:      db,
		metrics: newMetrics(promRegistry, backend),
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&StoreMark{}); err != nil {
		return err
	}
	for _, model := range models.MigrateModels {
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// DB returns the underlying GORM database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
