// Package sqlstore implements storage.Store on PostgreSQL (lib/pq) and SQLite
// (mattn/go-sqlite3).
//
// Queries are written with $N placeholders and rebound to ?N for SQLite.
// The schema lives in embedded migrations applied by Migrate:
//
//	cm, err := sqlstore.Open(cfg, logger)
//	if _, err := sqlstore.Migrate(ctx, cm.Primary(), cm.Dialect()); err != nil { ... }
//	store := sqlstore.NewWithManager(cm)
//
// PostgreSQL connections may add read replicas; only listings are served from
// them.
package sqlstore
