// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/livepoll/models"
)

// DefaultListLimit caps ListArchived when no limit is given.
const DefaultListLimit = 50

// Archive stores the final results of closed polls.
type Archive struct {
	db         *sql.DB
	driverType string
}

// NewArchive wraps an open connection whose schema has been created.
func NewArchive(db *sql.DB, driverType string) *Archive {
	return &Archive{db: db, driverType: driverType}
}

func (a *Archive) q(query string) string {
	return rebind(a.driverType, query)
}

// ArchivePoll records a closed poll and its ranked results. Archiving the
// same poll twice keeps the first copy.
func (a *Archive) ArchivePoll(ctx context.Context, poll models.Poll) error {
	if poll.Status != models.StatusClosed || poll.ClosedAt == nil {
		return fmt.Errorf("poll %s is not closed", poll.ID)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, a.q(`
		INSERT INTO poll_archive (poll_id, code, title, total_votes, participant_count, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (poll_id) DO NOTHING
	`), poll.ID, poll.Code, poll.Title, poll.TotalVotes, poll.ParticipantCount,
		poll.CreatedAt.UTC(), poll.ClosedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert archived poll: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Debug("poll already archived", "poll_id", poll.ID)
		return nil
	}

	for i, opt := range models.RankOptions(poll.Options) {
		_, err := tx.ExecContext(ctx, a.q(`
			INSERT INTO option_result (poll_id, option_id, label, votes, result_rank)
			VALUES (?, ?, ?, ?, ?)
		`), poll.ID, opt.ID, opt.Text, opt.Votes, i+1)
		if err != nil {
			return fmt.Errorf("failed to insert option result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	slog.Info("poll archived", "poll_id", poll.ID, "total_votes", poll.TotalVotes)
	return nil
}

// ListArchived returns archived polls, most recently closed first.
func (a *Archive) ListArchived(ctx context.Context, limit int) ([]models.ArchivedPoll, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := a.db.QueryContext(ctx, a.q(`
		SELECT poll_id, code, title, total_votes, participant_count, created_at, closed_at
		FROM poll_archive
		ORDER BY closed_at DESC, poll_id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}

	polls := []models.ArchivedPoll{}
	for rows.Next() {
		var p models.ArchivedPoll
		if err := rows.Scan(&p.PollID, &p.Code, &p.Title, &p.TotalVotes, &p.ParticipantCount, &p.CreatedAt, &p.ClosedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan archived poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	rows.Close()

	for i := range polls {
		results, err := a.results(ctx, polls[i].PollID)
		if err != nil {
			return nil, err
		}
		polls[i].Results = results
	}
	return polls, nil
}

func (a *Archive) results(ctx context.Context, pollID string) ([]models.ArchivedOption, error) {
	rows, err := a.db.QueryContext(ctx, a.q(`
		SELECT option_id, label, votes, result_rank
		FROM option_result
		WHERE poll_id = ?
		ORDER BY result_rank
	`), pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option results: %w", err)
	}
	defer rows.Close()

	results := []models.ArchivedOption{}
	for rows.Next() {
		var r models.ArchivedOption
		if err := rows.Scan(&r.OptionID, &r.Text, &r.Votes, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan option result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Ping reports whether the archive database is reachable.
func (a *Archive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}
