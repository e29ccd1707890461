// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db archives the final results of closed polls.

Live poll state is held in memory; the archive is an optional record of
how each poll ended. It is written once per poll when the poll closes.

# Connecting

Open accepts "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite):

	conn, err := db.Open(ctx, "sqlite", "file:livepoll.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}
	archive := db.NewArchive(conn, "sqlite")

Queries are written with ? placeholders and rebound to $n for PostgreSQL.

# Tables

  - poll_archive: one row per closed poll
  - option_result: final votes and rank per option

# Relationships

	poll_archive 1──* option_result

The foreign key uses ON DELETE CASCADE.

# Indexes

  - poll_archive.closed_at
  - poll_archive.code
  - option_result.poll_id
*/
package db
