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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	queries *prometheus.CounterVec
}

func newMetrics(registry prometheus.Registerer, backend string) *metrics {
	if registry == nil {
		return nil
	}
	return &metrics{
		queries: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name:        "database_metadata_queries_total",
				Help:        "Total number of metadata store queries",
				ConstLabels: prometheus.Labels{"backend": backend},
			},
			[]string{"query"},
		),
	}
}

func (m *metrics) observe(query string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(query).Inc()
}
