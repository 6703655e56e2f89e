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

// Package event is an in-process publish/subscribe bus. Events published
// with PublishAsync are delivered by a small worker pool so producers never
// wait on subscribers. Events that share a Key always go to the same worker,
// so subscribers see them in publish order.
package event

import (
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
	// Key orders async delivery. Events with the same key are delivered in
	// the order they were published
	Key string
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type EventBus struct {
	topics    map[EventType]*topic
	metrics   *eventMetrics
	logger    *slog.Logger
	queues    []chan Event
	done      chan struct{}
	workers   sync.WaitGroup
	lastSubId EventSubscriberId
	mu        sync.RWMutex
	// stopMu keeps PublishAsync from racing Stop
	stopMu  sync.RWMutex
	stopped bool
}

// NewEventBus creates an EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		topics:  make(map[EventType]*topic),
		logger:  logger.With("component", "event"),
		metrics: newEventMetrics(promRegistry),
		done:    make(chan struct{}),
	}
	e.workers.Add(AsyncWorkerPoolSize)
	for range AsyncWorkerPoolSize {
		queue := make(chan Event, AsyncQueueSize/AsyncWorkerPoolSize)
		e.queues = append(e.queues, queue)
		go e.work(queue)
	}
	return e
}

func (e *EventBus) work(queue <-chan Event) {
	defer e.workers.Done()
	for {
		select {
		case <-e.done:
			return
		case evt := <-queue:
			e.Publish(evt)
		}
	}
}

// queueFor picks the worker queue for an event by hashing its key
func (e *EventBus) queueFor(evt Event) chan Event {
	if evt.Key == "" {
		return e.queues[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(evt.Key))
	return e.queues[h.Sum32()%uint32(len(e.queues))] //nolint:gosec
}

// Subscribe returns a channel that receives events of the given type
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := newChanSubscriber(EventQueueSize)
	return e.RegisterSubscriber(eventType, sub), sub.ch
}

// SubscribeFunc runs fn on its own goroutine for each event of the given
// type until the subscription is removed
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	fn EventHandlerFunc,
) EventSubscriberId {
	id, ch := e.Subscribe(eventType)
	go func() {
		for evt := range ch {
			fn(evt)
		}
	}()
	return id
}

// RegisterSubscriber adds a custom Subscriber and returns its ID
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.topics[eventType]
	if !ok {
		t = &topic{subs: make(map[EventSubscriberId]Subscriber)}
		e.topics[eventType] = t
	}
	e.lastSubId++
	t.subs[e.lastSubId] = sub
	e.metrics.subscriberAdded(eventType)
	return e.lastSubId
}

// Unsubscribe removes a subscriber and closes it. Unknown IDs are ignored
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub Subscriber
	if t, ok := e.topics[eventType]; ok {
		sub = t.subs[subId]
		delete(t.subs, subId)
		if len(t.subs) == 0 {
			delete(e.topics, eventType)
		}
	}
	e.mu.Unlock()
	if sub != nil {
		e.metrics.subscriberRemoved(eventType)
		sub.Close()
	}
}

// Publish delivers an event to the current subscribers of its type. A
// subscriber that fails delivery is removed
func (e *EventBus) Publish(evt Event) {
	var entries []subEntry
	e.mu.RLock()
	if t, ok := e.topics[evt.Type]; ok {
		entries = t.snapshot()
	}
	e.mu.RUnlock()
	for _, entry := range entries {
		err := safeDeliver(entry.sub, evt)
		if err == nil {
			continue
		}
		e.metrics.deliveryFailed(evt.Type)
		e.logger.Warn(
			"event delivery failed, removing subscriber",
			"type", string(evt.Type),
			"subscriber", int(entry.id),
			"error", err,
		)
		e.Unsubscribe(evt.Type, entry.id)
	}
	e.metrics.published(evt.Type)
}

// PublishAsync queues an event for the worker pool. It returns false when
// the bus is stopped or the queue is full
func (e *EventBus) PublishAsync(evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.queueFor(evt) <- evt:
		return true
	default:
	}
	e.metrics.dropped(evt.Type)
	e.logger.Warn(
		"async event queue full, dropping event",
		"type", string(evt.Type),
	)
	return false
}

// Stop halts the worker pool and closes all subscribers. Events still in
// the queue are dropped
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.done)
	e.stopMu.Unlock()
	e.workers.Wait()

	e.mu.Lock()
	topics := e.topics
	e.topics = make(map[EventType]*topic)
	e.mu.Unlock()
	for evtType, t := range topics {
		for _, sub := range t.subs {
			sub.Close()
			e.metrics.subscriberRemoved(evtType)
		}
	}
}
