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
	"errors"
	"fmt"
	"sync"
)

var ErrSubscriberFull = errors.New("subscriber queue is full")

// Subscriber receives events from the bus. Close must be safe to call more
// than once
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// chanSubscriber hands events to a buffered channel without blocking. A
// full buffer fails the delivery
type chanSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChanSubscriber(buffer int) *chanSubscriber {
	return &chanSubscriber{ch: make(chan Event, buffer)}
}

func (c *chanSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return ErrSubscriberFull
	}
}

func (c *chanSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// safeDeliver turns a subscriber panic into a delivery error
func safeDeliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// topic is the subscriber set for one event type
type topic struct {
	subs map[EventSubscriberId]Subscriber
}

func (t *topic) snapshot() []subEntry {
	ret := make([]subEntry, 0, len(t.subs))
	for id, sub := range t.subs {
		ret = append(ret, subEntry{id: id, sub: sub})
	}
	return ret
}

type subEntry struct {
	sub Subscriber
	id  EventSubscriberId
}
