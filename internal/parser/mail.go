package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// ParsedMail is the subset of a parsed RFC 5322 message that the ingestion
// pipeline stores.
type ParsedMail struct {
	From     string
	Subject  string
	Date     time.Time
	TextBody string
	HTMLBody string
}

// ParseMail parses a raw message payload. The first text/plain and text/html
// inline parts become the bodies; attachments are ignored. Any structural
// error fails the whole parse, the caller must not persist anything in that
// case.
func ParseMail(raw []byte) (*ParsedMail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	parsed := &ParsedMail{}
	parsed.Subject, _ = mr.Header.Subject()
	parsed.Date, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		parsed.From = from[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read part body: %w", err)
		}

		switch {
		case strings.HasPrefix(ct, "text/plain") && parsed.TextBody == "":
			parsed.TextBody = string(body)
		case strings.HasPrefix(ct, "text/html") && parsed.HTMLBody == "":
			parsed.HTMLBody = string(body)
		}
	}

	return parsed, nil
}
