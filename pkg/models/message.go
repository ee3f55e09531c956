package models

import (
	"database/sql"
	"time"
)

// Message types assigned at classification time.
const (
	TypeNormal = "normal"
	TypeOTP    = "otp"
)

// Message represents a stored email message. Multi-recipient inbound mail is
// fanned out into one row per recipient.
type Message struct {
	ID          int64          `db:"id" json:"id"`
	ToAddress   string         `db:"to_address" json:"to_address"`
	FromAddress string         `db:"from_address" json:"from_address"`
	Subject     string         `db:"subject" json:"subject"`
	TextBody    string         `db:"text_body" json:"text_body"`
	HTMLBody    string         `db:"html_body" json:"html_body"`
	ReceivedAt  time.Time      `db:"received_at" json:"received_at"`
	MessageType string         `db:"message_type" json:"message_type"` // "normal" or "otp"
	OTPCode     sql.NullString `db:"otp_code" json:"otp_code"`         // set only for otp messages
	HasPin      bool           `db:"has_pin" json:"has_pin"`
	PinHash     sql.NullString `db:"pin_hash" json:"-"` // per-address PIN hash, duplicated per row
}

// MessageSummary is the list-view projection of a message, without bodies.
type MessageSummary struct {
	ID          int64     `db:"id" json:"id"`
	ToAddress   string    `db:"to_address" json:"to_address"`
	FromAddress string    `db:"from_address" json:"from_address"`
	Subject     string    `db:"subject" json:"subject"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
	MessageType string    `db:"message_type" json:"message_type"`
	HasPin      bool      `db:"has_pin" json:"has_pin"`
	HasHTML     bool      `db:"has_html" json:"has_html"`
}

// MessageStats holds aggregate counts for the owner dashboard.
type MessageStats struct {
	Total int64 `db:"total" json:"total"`
	OTP   int64 `db:"otp" json:"otp"`
	Today int64 `db:"today" json:"today"`
}
