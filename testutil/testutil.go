// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/clock"
	"github.com/danielhkuo/livepoll/db"
	"github.com/danielhkuo/livepoll/lifecycle"
	"github.com/danielhkuo/livepoll/models"
)

// Epoch is the start time of every manual test clock.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseType:   "sqlite",
		AdminKeySalt:   "test-admin-salt",
		CORSOrigin:     "*",
		EventBuffer:    broadcast.DefaultBuffer,
		PollCodeLength: auth.DefaultCodeLength,
	}
}

// SetupTestEngine creates an engine driven by a manual clock. Pending timers
// are stopped when the test ends.
func SetupTestEngine(t *testing.T, opts ...lifecycle.Option) (*lifecycle.Engine, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(Epoch)
	opts = append([]lifecycle.Option{lifecycle.WithClock(clk)}, opts...)
	engine := lifecycle.New(opts...)
	t.Cleanup(engine.Shutdown)

	return engine, clk
}

// SetupTestDB opens an in-memory SQLite database with the schema applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(ctx, conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// SetupTestArchive wraps SetupTestDB in an Archive.
func SetupTestArchive(t *testing.T) *db.Archive {
	t.Helper()
	return db.NewArchive(SetupTestDB(t), db.DriverSQLite)
}

// CreateTestPoll creates a waiting poll with the given options
func CreateTestPoll(t *testing.T, engine *lifecycle.Engine, settings models.SettingsInput, options ...string) models.Poll {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Red", "Green", "Blue"}
	}
	poll, err := engine.CreatePoll(context.Background(), models.CreatePollRequest{
		Title:    "Test Poll",
		Options:  options,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return poll
}

// CreateActivePoll creates a poll and starts it
func CreateActivePoll(t *testing.T, engine *lifecycle.Engine, settings models.SettingsInput, options ...string) models.Poll {
	t.Helper()

	poll := CreateTestPoll(t, engine, settings, options...)
	started, err := engine.StartPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("Failed to start test poll: %v", err)
	}
	return started
}

// CastTestVote submits a ballot and fails the test on error
func CastTestVote(t *testing.T, engine *lifecycle.Engine, pollID, voterID string, optionIDs ...int) models.Poll {
	t.Helper()

	poll, err := engine.Vote(context.Background(), pollID, voterID, optionIDs)
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
	return poll
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int { return &n }

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool { return &b }

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var raw []byte
		if s, ok := body.(string); ok {
			raw = []byte(s)
		} else {
			raw, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
