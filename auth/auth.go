// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultCodeLength matches the six-character join codes participants type in.
const DefaultCodeLength = 6

// codeAlphabet is uppercase base36 so codes survive being read aloud.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidLength   = errors.New("code length must be positive")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewPollID returns a random (version 4) UUID string.
func NewPollID() string {
	return uuid.NewString()
}

// GeneratePollCode creates a random uppercase alphanumeric code of length n.
// Uniqueness is not checked here; the store retries on collision.
func GeneratePollCode(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate poll code: %w", err)
	}

	// 252 is the largest multiple of 36 below 256; rejecting bytes above it
	// keeps every character equally likely.
	code := make([]byte, 0, n)
	for len(code) < n {
		for _, v := range b {
			if v >= 252 {
				continue
			}
			code = append(code, codeAlphabet[int(v)%len(codeAlphabet)])
			if len(code) == n {
				break
			}
		}
		if len(code) < n {
			if _, err := rand.Read(b); err != nil {
				return "", fmt.Errorf("failed to generate poll code: %w", err)
			}
		}
	}

	return string(code), nil
}

// NormalizeCode upper-cases and trims a user-supplied code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateAdminKey creates an HMAC-based admin key for a poll
// This is deterministic and verifiable
func GenerateAdminKey(pollID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(pollID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the poll
func ValidateAdminKey(pollID, adminKey, salt string) error {
	expected := GenerateAdminKey(pollID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}
