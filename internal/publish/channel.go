// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package publish

import (
	"sync"
)

// TopicKpiUpdates is the topic every reconciled category publishes to.
const TopicKpiUpdates = "kpi-updates"

// Channel is a fire-and-forget update sink.
type Channel interface {
	Publish(topic string, payload interface{})
}

// Fanout publishes to every channel in order.
type Fanout []Channel

// NewFanout returns a Fanout over the non-nil channels.
func NewFanout(channels ...Channel) Fanout {
	out := make(Fanout, 0, len(channels))
	for _, c := range channels {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Publish implements Channel.
func (f Fanout) Publish(topic string, payload interface{}) {
	for _, c := range f {
		c.Publish(topic, payload)
	}
}

// Message is one captured publish.
type Message struct {
	Topic   string
	Payload interface{}
}

// Recorder is a Channel that keeps every publish in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Publish implements Channel.
func (r *Recorder) Publish(topic string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Payload: payload})
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset forgets all captured messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
