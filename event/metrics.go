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

package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	eventsTotal    *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	deliveryErrors *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
}

func newEventMetrics(promRegistry prometheus.Registerer) *eventMetrics {
	if promRegistry == nil {
		return nil
	}
	promautoFactory := promauto.With(promRegistry)
	return &eventMetrics{
		eventsTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_event_published_total",
				Help: "Events published by type",
			},
			[]string{"type"},
		),
		droppedTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_event_dropped_total",
				Help: "Async events dropped because the queue was full",
			},
			[]string{"type"},
		),
		deliveryErrors: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_event_delivery_errors_total",
				Help: "Failed deliveries to subscribers",
			},
			[]string{"type"},
		),
		subscribers: promautoFactory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "warehouse_event_subscribers",
				Help: "Current subscribers by event type",
			},
			[]string{"type"},
		),
	}
}

func (m *eventMetrics) published(t EventType) {
	if m != nil {
		m.eventsTotal.WithLabelValues(string(t)).Inc()
	}
}

func (m *eventMetrics) dropped(t EventType) {
	if m != nil {
		m.droppedTotal.WithLabelValues(string(t)).Inc()
	}
}

func (m *eventMetrics) deliveryFailed(t EventType) {
	if m != nil {
		m.deliveryErrors.WithLabelValues(string(t)).Inc()
	}
}

func (m *eventMetrics) subscriberAdded(t EventType) {
	if m != nil {
		m.subscribers.WithLabelValues(string(t)).Inc()
	}
}

func (m *eventMetrics) subscriberRemoved(t EventType) {
	if m != nil {
		m.subscribers.WithLabelValues(string(t)).Dec()
	}
}
