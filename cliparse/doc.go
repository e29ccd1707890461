// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3001)
  - DatabaseURL: Archive database; empty disables the archive
  - DatabaseType: sqlite (default) or postgres
  - AdminKeySalt: Secret for admin key HMAC; empty disables admin keys
  - CORSOrigin: Allowed origin (default: *)
  - EventBuffer: Events queued per subscriber (default: 64)
  - PollCodeLength: Generated poll code length (default: 6)
  - OTelEndpoint: OTLP/HTTP trace endpoint; empty disables tracing

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	-admin-salt     Admin key salt
	-cors-origin    Allowed CORS origin
	-event-buffer   Per-subscriber event buffer
	-code-length    Poll code length
	-otel-endpoint  OTLP/HTTP endpoint

# Environment Variables

The environment is read first (a .env file is loaded by main), then flags
override it:

	PORT             → -p
	DATABASE_URL     → -d
	DATABASE_TYPE    → -t
	ADMIN_KEY_SALT   → -admin-salt
	CORS_ORIGIN      → -cors-origin
	EVENT_BUFFER     → -event-buffer
	POLL_CODE_LENGTH → -code-length
	OTEL_ENDPOINT    → -otel-endpoint

# Validation

ParseFlags returns an error for an out-of-range port, an unknown database
type, a non-positive event buffer, or a code length outside 4 to 12.
*/
package cliparse
