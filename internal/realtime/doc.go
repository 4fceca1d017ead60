// ABOUTME: Package realtime implements the WebSocket wire protocol for bot clients
// ABOUTME: covering authentication, catch ingestion, config updates and heartbeats

// Package realtime carries the bidirectional protocol between connected
// bot clients and the gateway. Every connection starts unauthenticated
// and must present a valid token within the auth deadline; after that it
// may report catches, publish config snapshots and exchange heartbeats.
package realtime
