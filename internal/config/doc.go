// Package config handles configuration loading for angler-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from ANGLER_CONFIG environment variable
//  2. ~/.config/angler/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${ANGLER_JWT_SECRET}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "720h"
//	  ws_auth_timeout: "30s"
//
// # Example
//
//	server:
//	  http_addr: "0.0.0.0:3000"
//
//	database:
//	  path: "./data/angler.db"
//
//	auth:
//	  jwt_secret: "${ANGLER_JWT_SECRET}"
//
//	license:
//	  url: "https://keymaster.example.com"
//	  project_id: "00000000-0000-0000-0000-000000000000"
package config
