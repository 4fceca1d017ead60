// ABOUTME: Package api is the public JSON HTTP surface of the gateway
// ABOUTME: Account auth, per-user stats, leaderboards and public config

// Package api serves the endpoints the bot client calls over plain HTTP:
// registration and login (which issue the tokens the realtime channel
// verifies), password recovery, and the read-only stats surface.
package api
