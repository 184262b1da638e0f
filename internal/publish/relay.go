// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
)

const relayChannelName = "nats-relay"

// Relay forwards updates published by other instances from NATS to a local
// channel. It uses a plain (non-queue) core NATS subscription so every
// instance receives every update; JetStream-retained subjects are delivered
// to core subscribers as well.
type Relay struct {
	subscriber message.Subscriber
	target     Channel
	prefix     string
	origin     string
	topics     []string
}

// NewRelay subscribes to topics on the server at url.
func NewRelay(cfg *config.NATSConfig, url, origin string, target Channel, topics ...string) (*Relay, error) {
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("nats-relay"))

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   5 * time.Second,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Relay{
		subscriber: sub,
		target:     target,
		prefix:     cfg.SubjectPrefix,
		origin:     origin,
		topics:     topics,
	}, nil
}

// Serve subscribes and forwards messages until ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, topic := range r.topics {
		messages, err := r.subscriber.Subscribe(ctx, Subject(r.prefix, topic))
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}

		wg.Add(1)
		go func(messages <-chan *message.Message) {
			defer wg.Done()
			for msg := range messages {
				r.handle(msg)
			}
		}(messages)
	}

	logging.Info().Strs("topics", r.topics).Str("origin", r.origin).Msg("NATS relay started")
	<-ctx.Done()
	wg.Wait()
	logging.Info().Msg("NATS relay stopped")
	return ctx.Err()
}

// handle forwards one message. Own-origin messages were already published
// locally and are only acknowledged.
func (r *Relay) handle(msg *message.Message) {
	defer msg.Ack()

	if msg.Metadata.Get(MetadataOrigin) == r.origin {
		return
	}

	topic := msg.Metadata.Get(MetadataTopic)
	if topic == "" || !json.Valid(msg.Payload) {
		metrics.UpdatesPublished.WithLabelValues(relayChannelName, "error").Inc()
		logging.Warn().Str("message_uuid", msg.UUID).Msg("dropping malformed relayed update")
		return
	}

	payload := make(json.RawMessage, len(msg.Payload))
	copy(payload, msg.Payload)
	r.target.Publish(topic, payload)
	metrics.UpdatesPublished.WithLabelValues(relayChannelName, "ok").Inc()
}

// Close releases the subscription.
func (r *Relay) Close() error {
	return r.subscriber.Close()
}
