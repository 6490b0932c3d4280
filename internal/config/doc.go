// Package config handles configuration loading for chat-gateway.
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
//  1. Path from CHATGATE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/chat-gateway/gateway.yaml
//  3. ~/.config/chat-gateway/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${CHATGATE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	ai:
//	  retry_backoff: "2s"
//	  request_timeout: "60s"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  allowed_origins:
//	    - "http://localhost:3000"
//
// Database:
//
//	database:
//	  path: "/var/lib/chat-gateway/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${CHATGATE_JWT_SECRET}"
//
// AI reply generation:
//
//	ai:
//	  enabled: true
//	  api_key: "${OPENAI_API_KEY}"
//	  model: "gpt-4o-mini"
//	  temperature: 0.7
//	  max_tokens: 1000
//	  max_attempts: 1
//	  retry_backoff: "2s"
//	  request_timeout: "60s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
