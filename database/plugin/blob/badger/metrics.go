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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const badgerMetricNamePrefix = "database_blob_"

type blobMetrics struct {
	reads   prometheus.Counter
	writes  prometheus.Counter
	deletes prometheus.Counter
}

func (d *BlobStoreBadger) registerBlobMetrics() {
	factory := promauto.With(d.promRegistry)
	d.metrics = &blobMetrics{
		reads: factory.NewCounter(prometheus.CounterOpts{
			Name: badgerMetricNamePrefix + "reads_total",
			Help: "Total number of blob reads",
		}),
		writes: factory.NewCounter(prometheus.CounterOpts{
			Name: badgerMetricNamePrefix + "writes_total",
			Help: "Total number of blob writes",
		}),
		deletes: factory.NewCounter(prometheus.CounterOpts{
			Name: badgerMetricNamePrefix + "deletes_total",
			Help: "Total number of blob deletes",
		}),
	}
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "lsm_size_bytes",
			Help: "Size of the badger LSM tree",
		},
		func() float64 {
			lsm, _ := d.db.Size()
			return float64(lsm)
		},
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "vlog_size_bytes",
			Help: "Size of the badger value log",
		},
		func() float64 {
			_, vlog := d.db.Size()
			return float64(vlog)
		},
	)
}

func (m *blobMetrics) incRead() {
	if m != nil {
		m.reads.Inc()
	}
}

func (m *blobMetrics) incWrite() {
	if m != nil {
		m.writes.Inc()
	}
}

func (m *blobMetrics) incDelete() {
	if m != nil {
		m.deletes.Inc()
	}
}
