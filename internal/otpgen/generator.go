// Package otpgen produces system-originated OTP messages that bypass the
// SMTP intake and are written straight to the store.
package otpgen

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/rxlab/tempmail/pkg/models"
)

// FromAddress is the sender of synthetic OTP messages.
const FromAddress = "noreply@tempmail-system.com"

var subjects = map[string]string{
	"verification":   "Email Verification Code",
	"login":          "Login Verification Code",
	"password_reset": "Password Reset Code",
}

// Generator produces numeric one-time passcodes of a fixed digit length.
type Generator struct {
	digits int
}

// New creates a generator. digits is the code length (default deployment
// uses 6).
func New(digits int) *Generator {
	return &Generator{digits: digits}
}

// Digits returns the configured code length.
func (g *Generator) Digits() int {
	return g.digits
}

// Code returns a fresh zero-padded numeric code.
func (g *Generator) Code() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", g.digits, n), nil
}

// BuildMessage builds the synthetic OTP email for an address. kind selects
// the subject line (verification, login, password_reset).
func BuildMessage(to, code, kind string) *models.Message {
	subject, ok := subjects[kind]
	if !ok {
		subject = "Verification Code"
	}

	text := fmt.Sprintf(`Verification Code: %s

This code will expire in 10 minutes.
Do not share this code with anyone.

If you didn't request this code, please ignore this email.
`, code)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
  <h2>Your verification code is:</h2>
  <div style="font-size:36px;font-weight:bold;letter-spacing:8px">%s</div>
  <p>This code will expire in 10 minutes. Do not share this code with anyone.</p>
  <p>If you didn't request this code, please ignore this email.</p>
</body>
</html>
`, code)

	return &models.Message{
		ToAddress:   to,
		FromAddress: FromAddress,
		Subject:     subject,
		TextBody:    text,
		HTMLBody:    html,
		MessageType: models.TypeOTP,
		OTPCode:     sql.NullString{String: code, Valid: true},
	}
}
