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

package database

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	commitResultCommitted  = "committed"
	commitResultRolledBack = "rolled_back"
	commitResultFailed     = "failed"
	commitResultPartial    = "partial"
)

type txnMetrics struct {
	txns     *prometheus.CounterVec
	duration prometheus.Histogram
}

func newTxnMetrics(promRegistry prometheus.Registerer) *txnMetrics {
	if promRegistry == nil {
		return nil
	}
	promautoFactory := promauto.With(promRegistry)
	return &txnMetrics{
		txns: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_database_txns_total",
				Help: "Read-write database transactions by outcome",
			},
			[]string{"result"},
		),
		duration: promautoFactory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warehouse_database_txn_duration_seconds",
				Help:    "Time from opening a read-write transaction to committing it",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *txnMetrics) observeCommit(result string, started time.Time) {
	if m == nil {
		return
	}
	m.txns.WithLabelValues(result).Inc()
	if result == commitResultCommitted {
		m.duration.Observe(time.Since(started).Seconds())
	}
}
