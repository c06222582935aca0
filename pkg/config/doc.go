// Package config loads application configuration.
//
// # Overview
//
// Values start from Default, are overlaid by the YAML file named in
// BAYNEXT_CONFIG_FILE when set, and finally by environment variables.
// ${VAR} references inside the file are expanded from the environment.
//
// # Configuration Structure
//
// Auth settings:
//
//	AUTH_SECRET="..."            # or BAYNEXT_AUTH_SECRET, required
//	BAYNEXT_TOKEN_TTL="1h"
//	BAYNEXT_BCRYPT_COST="12"
//
// Server settings:
//
//	BAYNEXT_HOST="0.0.0.0"
//	BAYNEXT_PORT="8080"
//	BAYNEXT_HEALTH_PORT="9090"
//
// Storage settings:
//
//	BAYNEXT_STORAGE_TYPE="postgres"  # memory, postgres, sqlite3
//	BAYNEXT_DATABASE_URL="postgres://localhost/baynext"
//	BAYNEXT_DATABASE_REPLICA_URLS="postgres://replica1/baynext,postgres://replica2/baynext"
//	BAYNEXT_REDIS_URL="redis://localhost:6379"
//
// Observability settings:
//
//	BAYNEXT_LOG_LEVEL="info"  # debug, info, warn, error
//	BAYNEXT_LOG_FORMAT="json" # json, text
//	BAYNEXT_OTEL_ENABLED="true"
//	BAYNEXT_OTEL_ENDPOINT="otel-collector:4317"
//
// # Reloading
//
// Watcher follows the config file and applies logging.level changes without
// a restart. Other settings need a restart.
package config
