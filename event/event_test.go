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

package event_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/warehouse/event"
	"github.com/blinklabs-io/warehouse/pledge"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribePublish(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.PledgeTransitionEventType)
	evt := event.NewPledgeTransitionEvent(
		pledge.Transition{PledgeID: "p1", To: pledge.StatusPledged},
		nil,
	)
	eb.Publish(evt)
	select {
	case got := <-ch:
		data, ok := got.Data.(event.PledgeTransitionEvent)
		require.True(t, ok)
		assert.Equal(t, "p1", data.Transition.PledgeID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishOtherType(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.ContractInstantiatedEventType)
	eb.Publish(event.NewPledgeTransitionEvent(pledge.Transition{}, nil))
	select {
	case <-ch:
		t.Fatal("unexpected event")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, ch := eb.Subscribe(event.PledgeTransitionEventType)
	eb.Unsubscribe(event.PledgeTransitionEventType, subId)
	_, ok := <-ch
	assert.False(t, ok)
	// Removing twice is harmless
	eb.Unsubscribe(event.PledgeTransitionEventType, subId)
}

func TestSubscribeFuncAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	var count atomic.Int32
	done := make(chan struct{}, 3)
	eb.SubscribeFunc(event.ContractInstantiatedEventType, func(evt event.Event) {
		count.Add(1)
		done <- struct{}{}
	})
	for range 3 {
		require.True(t, eb.PublishAsync(
			event.NewContractInstantiatedEvent(pledge.Configuration{Denom: "usettle"}),
		))
	}
	for range 3 {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for async delivery")
		}
	}
	assert.Equal(t, int32(3), count.Load())
}

type failingSubscriber struct {
	closed atomic.Bool
	panics bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	if f.panics {
		panic("boom")
	}
	return errors.New("deliver failed")
}

func (f *failingSubscriber) Close() {
	f.closed.Store(true)
}

type recordingSubscriber struct {
	mu     sync.Mutex
	byKey  map[string][]pledge.Status
	total  int
	target int
	done   chan struct{}
}

func (r *recordingSubscriber) Deliver(evt event.Event) error {
	data := evt.Data.(event.PledgeTransitionEvent)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[evt.Key] = append(r.byKey[evt.Key], data.Transition.To)
	r.total++
	if r.total == r.target {
		close(r.done)
	}
	return nil
}

func (r *recordingSubscriber) Close() {}

func TestPublishAsyncKeepsKeyOrder(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	steps := []pledge.Status{
		pledge.StatusPledged,
		pledge.StatusApproved,
		pledge.StatusPaydownRequested,
		pledge.StatusPaydownApproved,
	}
	const pledges = 16
	rec := &recordingSubscriber{
		byKey:  make(map[string][]pledge.Status),
		target: pledges * len(steps),
		done:   make(chan struct{}),
	}
	eb.RegisterSubscriber(event.PledgeTransitionEventType, rec)
	// Interleave pledges so each worker sees several keys at once
	for _, step := range steps {
		for i := range pledges {
			evt := event.NewPledgeTransitionEvent(
				pledge.Transition{PledgeID: fmt.Sprintf("p%d", i), To: step},
				nil,
			)
			require.True(t, eb.PublishAsync(evt))
		}
	}
	select {
	case <-rec.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for async delivery")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.byKey, pledges)
	for key, got := range rec.byKey {
		assert.Equal(t, steps, got, key)
	}
}

func TestFailingSubscriberRemoved(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	failing := &failingSubscriber{}
	panicking := &failingSubscriber{panics: true}
	eb.RegisterSubscriber(event.PledgeTransitionEventType, failing)
	eb.RegisterSubscriber(event.PledgeTransitionEventType, panicking)
	_, ch := eb.Subscribe(event.PledgeTransitionEventType)

	eb.Publish(event.NewPledgeTransitionEvent(pledge.Transition{}, nil))
	assert.True(t, failing.closed.Load())
	assert.True(t, panicking.closed.Load())
	require.Len(t, ch, 1)

	expected := `
# HELP warehouse_event_delivery_errors_total Failed deliveries to subscribers
# TYPE warehouse_event_delivery_errors_total counter
warehouse_event_delivery_errors_total{type="pledge.transition"} 2
# HELP warehouse_event_published_total Events published by type
# TYPE warehouse_event_published_total counter
warehouse_event_published_total{type="pledge.transition"} 1
# HELP warehouse_event_subscribers Current subscribers by event type
# TYPE warehouse_event_subscribers gauge
warehouse_event_subscribers{type="pledge.transition"} 1
`
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"warehouse_event_delivery_errors_total",
		"warehouse_event_published_total",
		"warehouse_event_subscribers",
	))
}

func TestFullSubscriberRemoved(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.PledgeTransitionEventType)
	for range event.EventQueueSize + 1 {
		eb.Publish(event.NewPledgeTransitionEvent(pledge.Transition{}, nil))
	}
	received := 0
	for range ch {
		received++
	}
	assert.Equal(t, event.EventQueueSize, received)
}

func TestStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, ch := eb.Subscribe(event.PledgeTransitionEventType)
	eb.Stop()
	_, ok := <-ch
	assert.False(t, ok)
	assert.False(t, eb.PublishAsync(event.NewPledgeTransitionEvent(pledge.Transition{}, nil)))
	eb.Stop()
}
