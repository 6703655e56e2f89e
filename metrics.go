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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type hostMetrics struct {
	unitDuration *prometheus.HistogramVec
	rollbacks    *prometheus.CounterVec
	inflight     prometheus.Gauge
}

func newHostMetrics(promRegistry prometheus.Registerer) *hostMetrics {
	if promRegistry == nil {
		return nil
	}
	promautoFactory := promauto.With(promRegistry)
	return &hostMetrics{
		unitDuration: promautoFactory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warehouse_unit_duration_seconds",
				Help:    "Time spent running a unit of work, including commit",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"operation"},
		),
		rollbacks: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_unit_rollbacks_total",
				Help: "Units of work that were rolled back",
			},
			[]string{"operation"},
		),
		inflight: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "warehouse_unit_waiting",
				Help: "Units of work waiting for the writer lock",
			},
		),
	}
}
