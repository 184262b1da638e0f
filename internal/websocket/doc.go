// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

/*
Package websocket pushes reconciled KPI updates to browser clients.

It uses gorilla/websocket with a hub-client architecture:

	┌──────────┐
	│   Hub    │ ← Publish(topic, payload)
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: reads from the socket, answers {"type":"ping"} with a pong
  - writePump: writes queued messages and keepalive pings

The Hub implements publish.Channel. Every publish is delivered as

	{"type":"kpi-updates","data":{"category":"posts","data":[...],"sentAt":"..."}}

Delivery is best effort: a full broadcast queue drops the update and a client
whose send buffer is full is disconnected.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	conn, _ := upgrader.Upgrade(w, r, nil)
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

	hub.Publish("kpi-updates", update)

Client (JavaScript):

	const ws = new WebSocket('ws://localhost:8080/ws/kpi');
	ws.onmessage = (event) => {
	    const msg = JSON.parse(event.data);
	    if (msg.type === 'kpi-updates') {
	        render(msg.data.category, msg.data.data);
	    }
	};
*/
package websocket
