// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package publish delivers reconciled updates to live consumers.

A Channel is fire-and-forget: Publish never returns an error and never
blocks on a slow consumer. Failures are logged and counted in
instakpi_updates_published_total{channel,result}.

Implementations:

  - websocket.Hub: browsers connected to /ws/kpi
  - NATSChannel: a NATS subject per topic ({prefix}.{topic}), optionally
    retained in a JetStream stream, via Watermill
  - Fanout: several channels behind one
  - Recorder: captures publishes for tests

A Relay subscribes to the NATS subjects and republishes messages from other
instances to a local channel (normally the hub), so every instance's
websocket clients see every update. Messages carry an origin metadata field;
a relay drops its own instance's messages.

	hub := websocket.NewHub()
	nc, _ := publish.NewNATSChannel(ctx, &cfg.NATS, url, origin)
	channel := publish.NewFanout(hub, nc)

	relay, _ := publish.NewRelay(&cfg.NATS, url, origin, hub, publish.TopicKpiUpdates)
	go relay.Serve(ctx)
*/
package publish
