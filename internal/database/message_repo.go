package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rxlab/tempmail/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAccessDenied is returned when a PIN-protected address is queried
// without prior PIN verification
var ErrAccessDenied = errors.New("pin verification required")

// HashPin returns the one-way hash stored in pin_hash. The same function is
// used at write and verify time so hashes compare byte for byte.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// CreateMessage inserts a new message row and assigns its ID and ReceivedAt.
func (db *DB) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (to_address, from_address, subject, text_body, html_body, received_at, message_type, otp_code, has_pin, pin_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if msg.MessageType == "" {
		msg.MessageType = models.TypeNormal
	}
	result, err := db.ExecContext(ctx, query,
		msg.ToAddress,
		msg.FromAddress,
		msg.Subject,
		msg.TextBody,
		msg.HTMLBody,
		now,
		msg.MessageType,
		msg.OTPCode,
		msg.HasPin,
		msg.PinHash,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	msg.ReceivedAt = now
	return nil
}

// GetMessageByID returns a full message row including bodies.
func (db *DB) GetMessageByID(ctx context.Context, id int64) (*models.Message, error) {
	var msg models.Message
	query := `SELECT * FROM messages WHERE id = ?`
	err := db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// ListByRecipient returns message summaries for an address, OTP messages
// first, newest first within each type. When the address has a PIN
// requirement and pinVerified is false it returns ErrAccessDenied without
// touching the rows.
func (db *DB) ListByRecipient(ctx context.Context, address string, pinVerified bool) ([]*models.MessageSummary, error) {
	required, err := db.HasPinRequirement(ctx, address)
	if err != nil {
		return nil, err
	}
	if required && !pinVerified {
		return nil, ErrAccessDenied
	}

	var summaries []*models.MessageSummary
	query := `
		SELECT id, to_address, from_address, subject, received_at, message_type, has_pin,
		       CASE WHEN html_body IS NOT NULL AND html_body != '' THEN 1 ELSE 0 END AS has_html
		FROM messages
		WHERE to_address = ?
		ORDER BY CASE WHEN message_type = 'otp' THEN 0 ELSE 1 END, received_at DESC
	`
	if err := db.SelectContext(ctx, &summaries, query, address); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return summaries, nil
}

// HasPinRequirement reports whether any stored row for the address requires
// a PIN to read.
func (db *DB) HasPinRequirement(ctx context.Context, address string) (bool, error) {
	var id int64
	query := `SELECT id FROM messages WHERE to_address = ? AND has_pin = 1 LIMIT 1`
	err := db.GetContext(ctx, &id, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check pin requirement: %w", err)
	}
	return true, nil
}

// VerifyPin hashes the supplied PIN and reports whether a row for the
// address carries a matching pin_hash.
func (db *DB) VerifyPin(ctx context.Context, address, pin string) (bool, error) {
	var id int64
	query := `SELECT id FROM messages WHERE to_address = ? AND pin_hash = ? LIMIT 1`
	err := db.GetContext(ctx, &id, query, address, HashPin(pin))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify pin: %w", err)
	}
	return true, nil
}

// MessageStats returns aggregate counts for the owner dashboard.
func (db *DB) MessageStats(ctx context.Context) (*models.MessageStats, error) {
	var stats models.MessageStats
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN message_type = 'otp' THEN 1 ELSE 0 END), 0) AS otp,
		       COALESCE(SUM(CASE WHEN DATE(received_at, 'localtime') = DATE('now', 'localtime') THEN 1 ELSE 0 END), 0) AS today
		FROM messages
	`
	if err := db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get message stats: %w", err)
	}
	return &stats, nil
}

// ListRecent returns the most recently received messages across all
// addresses, newest first.
func (db *DB) ListRecent(ctx context.Context, limit int) ([]*models.MessageSummary, error) {
	var summaries []*models.MessageSummary
	query := `
		SELECT id, to_address, from_address, subject, received_at, message_type, has_pin,
		       CASE WHEN html_body IS NOT NULL AND html_body != '' THEN 1 ELSE 0 END AS has_html
		FROM messages
		ORDER BY received_at DESC
		LIMIT ?
	`
	if err := db.SelectContext(ctx, &summaries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return summaries, nil
}
