package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

const (
	sessionCookieName = "tempmail_session"
	sessionTTL        = 24 * time.Hour
)

// Session holds the per-client set of addresses whose PIN was verified.
// Sessions live in memory only and die with the process.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	verified map[string]struct{}
}

// MarkVerified records a successful PIN check for an address.
func (s *Session) MarkVerified(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[address] = struct{}{}
}

// IsVerified reports whether the address passed a PIN check in this session.
func (s *Session) IsVerified(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.verified[address]
	return ok
}

// SessionManager issues session cookies and tracks the verified-address set
// per session id.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Get returns the request's session, or nil when there is none or it
// expired.
func (m *SessionManager) Get(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[cookie.Value]
	if !ok {
		return nil
	}
	if time.Since(session.CreatedAt) > sessionTTL {
		delete(m.sessions, cookie.Value)
		return nil
	}
	return session
}

// GetOrCreate returns the request's session, creating one and setting the
// cookie when needed.
func (m *SessionManager) GetOrCreate(w http.ResponseWriter, r *http.Request) *Session {
	if session := m.Get(r); session != nil {
		return session
	}

	id := newSessionID()
	session := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		verified:  make(map[string]struct{}),
	}

	m.mu.Lock()
	m.sweepLocked()
	m.sessions[id] = session
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

// sweepLocked drops expired sessions so abandoned cookies do not pin memory.
// Caller holds m.mu.
func (m *SessionManager) sweepLocked() {
	for id, session := range m.sessions {
		if time.Since(session.CreatedAt) > sessionTTL {
			delete(m.sessions, id)
		}
	}
}

func newSessionID() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return hex.EncodeToString(buf)
}
