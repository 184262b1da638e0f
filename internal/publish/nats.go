// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/instakpi/internal/config"
	"github.com/tomtom215/instakpi/internal/logging"
	"github.com/tomtom215/instakpi/internal/metrics"
)

// Metadata keys carried on every NATS message.
const (
	MetadataTopic  = "topic"
	MetadataOrigin = "origin"
)

const natsChannelName = "nats"

// ErrChannelClosed is returned by publishMessage after Close.
var ErrChannelClosed = errors.New("publish: channel closed")

// Subject maps a topic to its NATS subject.
func Subject(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// StreamName is the JetStream stream that retains every subject under prefix.
func StreamName(prefix string) string {
	name := strings.ToUpper(prefix)
	name = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(name)
	if name == "" {
		name = "INSTAKPI"
	}
	return name + "_UPDATES"
}

// NATSChannel publishes updates to NATS through a Watermill publisher.
type NATSChannel struct {
	publisher message.Publisher
	cb        *gobreaker.CircuitBreaker[struct{}]
	prefix    string
	origin    string
	mu        sync.RWMutex
	closed    bool
}

// natsOptions are the connection options shared by publisher and relay.
func natsOptions(cfg *config.NATSConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("instakpi"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

// NewNATSChannel connects a publisher to url. With cfg.JetStream the stream
// for cfg.SubjectPrefix is created or updated first and publishes wait for
// the stream acknowledgement.
func NewNATSChannel(ctx context.Context, cfg *config.NATSConfig, url, origin string) (*NATSChannel, error) {
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("nats-publisher"))

	if cfg.JetStream {
		if err := EnsureStream(ctx, url, cfg.SubjectPrefix); err != nil {
			return nil, err
		}
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: false, // EnsureStream owns the stream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	logging.Info().
		Str("url", url).
		Str("subject_prefix", cfg.SubjectPrefix).
		Bool("jetstream", cfg.JetStream).
		Msg("NATS update channel connected")

	return &NATSChannel{
		publisher: pub,
		cb:        gobreaker.NewCircuitBreaker[struct{}](breakerSettings("nats-publish")),
		prefix:    cfg.SubjectPrefix,
		origin:    origin,
	}, nil
}

// breakerSettings opens after five consecutive publish failures and probes
// again after 30 seconds.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	}
}

// Publish implements Channel. Errors are logged and counted, never returned.
func (c *NATSChannel) Publish(topic string, payload interface{}) {
	if err := c.publishMessage(topic, payload); err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, ErrChannelClosed) {
			result = "dropped"
		}
		metrics.UpdatesPublished.WithLabelValues(natsChannelName, result).Inc()
		logging.Warn().Err(err).Str("topic", topic).Msg("NATS publish failed")
		return
	}
	metrics.UpdatesPublished.WithLabelValues(natsChannelName, "ok").Inc()
}

func (c *NATSChannel) publishMessage(topic string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataTopic, topic)
	msg.Metadata.Set(MetadataOrigin, c.origin)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	_, err = c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.publisher.Publish(Subject(c.prefix, topic), msg)
	})
	return err
}

// Close shuts the publisher down. Later publishes are dropped.
func (c *NATSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.publisher.Close()
}
