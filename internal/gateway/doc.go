// ABOUTME: Package gateway assembles the server from its parts
// ABOUTME: One store, one registry, one HTTP listener

// Package gateway is the composition root of angler-gateway. It builds
// the store, session registry, token verifier, license client and the
// three HTTP surfaces (public API, realtime websocket, admin panel) and
// runs them on a single listener with graceful shutdown.
package gateway
