// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier, join code, and admin key generation.

# Poll IDs

Poll IDs are random version 4 UUIDs:

	id := auth.NewPollID()

# Join Codes

Join codes are short uppercase alphanumeric strings that participants type
in or scan from a QR code:

	code, err := auth.GeneratePollCode(auth.DefaultCodeLength) // e.g. "K7Q2ZD"

Lookups are case-insensitive; normalize user input first:

	auth.NormalizeCode(" k7q2zd ") // "K7Q2ZD"

GeneratePollCode does not check for collisions. The store retries with a
fresh code when one is already taken.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(pollID, salt)
	err := auth.ValidateAdminKey(pollID, adminKey, salt)

Admin keys are a placeholder organizer check. They are only issued and
enforced when an admin key salt is configured.

# ID Generation

Random hex IDs for connection and log correlation:

	id, err := auth.GenerateID(8)  // 16 hex characters
*/
package auth
