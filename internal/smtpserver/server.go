package smtpserver

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/rxlab/tempmail/internal/parser"
	"github.com/rxlab/tempmail/pkg/models"
)

// MessageStore persists classified messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
}

// Config for the SMTP intake listener.
type Config struct {
	Addr            string
	Domain          string
	MaxMessageBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// ErrServerClosed is returned by ListenAndServe after Shutdown.
var ErrServerClosed = smtp.ErrServerClosed

var (
	errRecipientRejected = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "recipient domain not allowed",
	}
	errPayloadTooLarge = &smtp.SMTPError{
		Code:         552,
		EnhancedCode: smtp.EnhancedCode{5, 3, 4},
		Message:      "message exceeds maximum size",
	}
	errPayloadParse = &smtp.SMTPError{
		Code:         554,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "failed to parse message",
	}
)

// Backend creates one ingestion session per connection.
type Backend struct {
	policy     *RecipientPolicy
	classifier parser.Classifier
	store      MessageStore
	maxBytes   int64
	logger     *slog.Logger
}

// NewBackend creates an SMTP backend
func NewBackend(policy *RecipientPolicy, classifier parser.Classifier, store MessageStore, maxBytes int64, logger *slog.Logger) *Backend {
	return &Backend{
		policy:     policy,
		classifier: classifier,
		store:      store,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// NewSession accepts every connection
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	logger := b.logger
	if c != nil && c.Conn() != nil {
		logger = logger.With("remote", c.Conn().RemoteAddr().String())
	}
	logger.Debug("new smtp connection")
	return &session{backend: b, logger: logger}, nil
}

// session holds per-connection transaction state: declared sender and the
// recipients that passed the policy check.
type session struct {
	backend *Backend
	logger  *slog.Logger
	from    string
	rcpts   []string
}

// AuthMechanisms advertises PLAIN auth
func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth accepts any credentials unconditionally; the intake is open.
func (s *session) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return nil
	}), nil
}

// Mail accepts every sender
func (s *session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt checks each recipient against the policy. A rejected recipient fails
// alone; the session keeps going for the others.
func (s *session) Rcpt(to string, opts *smtp.RcptOptions) error {
	if !s.backend.policy.Accept(to) {
		s.logger.Info("recipient rejected", "to", to)
		return errRecipientRejected
	}
	s.rcpts = append(s.rcpts, to)
	return nil
}

// Data buffers the payload, parses and classifies it once, then writes one
// row per accepted recipient. A parse failure persists nothing. A failed
// insert is logged and does not abort the sibling inserts.
func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, s.backend.maxBytes+1))
	if err != nil {
		s.logger.Warn("failed to read payload", "error", err)
		return err
	}
	if int64(len(data)) > s.backend.maxBytes {
		s.logger.Warn("payload too large", "bytes", len(data))
		return errPayloadTooLarge
	}

	parsed, err := parser.ParseMail(data)
	if err != nil {
		s.logger.Warn("failed to parse payload", "error", err)
		return errPayloadParse
	}

	result := s.backend.classifier.Classify(parsed.Subject, parsed.TextBody, parsed.HTMLBody)

	from := parsed.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		from = "unknown@sender.com"
	}
	subject := parsed.Subject
	if subject == "" {
		subject = "(No Subject)"
	}

	ctx := context.Background()
	for _, rcpt := range s.rcpts {
		msg := &models.Message{
			ToAddress:   rcpt,
			FromAddress: from,
			Subject:     subject,
			TextBody:    parsed.TextBody,
			HTMLBody:    parsed.HTMLBody,
			MessageType: result.Type,
		}
		if result.Type == models.TypeOTP && result.Code != "" {
			msg.OTPCode = sql.NullString{String: result.Code, Valid: true}
		}

		if err := s.backend.store.CreateMessage(ctx, msg); err != nil {
			s.logger.Error("failed to store message", "to", rcpt, "error", err)
			continue
		}
		s.logger.Info("message stored",
			"id", msg.ID,
			"to", rcpt,
			"from", from,
			"type", result.Type,
		)
	}

	return nil
}

// Reset discards the current transaction
func (s *session) Reset() {
	s.from = ""
	s.rcpts = nil
}

// Logout closes the session
func (s *session) Logout() error {
	return nil
}

// Server is the SMTP intake listener.
type Server struct {
	srv    *smtp.Server
	logger *slog.Logger
}

// NewServer creates the intake server
func NewServer(cfg Config, policy *RecipientPolicy, classifier parser.Classifier, store MessageStore, logger *slog.Logger) *Server {
	backend := NewBackend(policy, classifier, store, cfg.MaxMessageBytes, logger.With("component", "smtp"))

	srv := smtp.NewServer(backend)
	srv.Addr = cfg.Addr
	srv.Domain = cfg.Domain
	srv.AllowInsecureAuth = true
	srv.MaxMessageBytes = cfg.MaxMessageBytes
	srv.MaxRecipients = 50
	srv.ReadTimeout = cfg.ReadTimeout
	srv.WriteTimeout = cfg.WriteTimeout

	return &Server{srv: srv, logger: backend.logger}
}

// ListenAndServe listens on the configured address and serves connections
// until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("smtp server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
