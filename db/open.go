// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported driver types.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the archive database and verifies the connection.
func Open(ctx context.Context, driverType, url string) (*sql.DB, error) {
	driverType = strings.ToLower(strings.TrimSpace(driverType))
	switch driverType {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database type %q", driverType)
	}
	if url == "" {
		return nil, fmt.Errorf("database url is required for %s", driverType)
	}

	conn, err := sql.Open(driverType, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverType, err)
	}

	// Each SQLite connection gets its own in-memory database.
	if driverType == DriverSQLite && strings.Contains(url, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(driverType, query string) string {
	if driverType != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
