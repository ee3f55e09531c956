// Package web implements the retrieval API in front of the message store:
// PIN-gated listing, single-message fetch, PIN verification, synthetic OTP
// generation and the owner dashboard endpoints.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/rxlab/tempmail/internal/database"
	"github.com/rxlab/tempmail/internal/otpgen"
	"github.com/rxlab/tempmail/internal/parser"
	"github.com/rxlab/tempmail/pkg/models"
)

const ownerCookieName = "tempmail_owner"

// Handler serves the retrieval API.
type Handler struct {
	db       *database.DB
	sessions *SessionManager
	auth     *OwnerAuth
	otp      *otpgen.Generator
	renderer *parser.HTMLRenderer
	logger   *slog.Logger
}

// NewHandler creates the retrieval API handler
func NewHandler(db *database.DB, sessions *SessionManager, auth *OwnerAuth, otp *otpgen.Generator, logger *slog.Logger) *Handler {
	return &Handler{
		db:       db,
		sessions: sessions,
		auth:     auth,
		otp:      otp,
		renderer: parser.NewHTMLRenderer(),
		logger:   logger.With("component", "web"),
	}
}

// Router builds the chi router for all API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	// Echo the caller's origin instead of "*": browsers refuse a wildcard
	// on credentialed (cookie-bearing) requests.
	c := cors.New(cors.Options{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/settings/title", h.getSiteTitle)
		r.Post("/check-pin-required", h.checkPinRequired)
		r.Post("/verify-pin", h.verifyPin)
		r.Get("/session/status", h.sessionStatus)
		r.Post("/emails", h.listEmails)
		r.Get("/email/{id}", h.getEmail)
		r.Post("/generate-otp", h.generateOTP)

		r.Get("/admin/stats", h.adminStats)
		r.Get("/admin/recent", h.adminRecent)
	})

	r.Post("/owner/login", h.ownerLogin)
	r.Post("/owner/logout", h.ownerLogout)

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// checkSubscription short-circuits the request with {"expired": true} when
// the subscription date has passed. It overrides every other outcome of the
// gated endpoints.
func (h *Handler) checkSubscription(w http.ResponseWriter, r *http.Request) bool {
	active, err := h.db.SubscriptionActive(r.Context())
	if err != nil {
		h.logger.Error("subscription check failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Server error")
		return false
	}
	if !active {
		h.writeJSON(w, http.StatusOK, map[string]bool{"expired": true})
		return false
	}
	return true
}

func (h *Handler) getSiteTitle(w http.ResponseWriter, r *http.Request) {
	if !h.checkSubscription(w, r) {
		return
	}

	title, err := h.db.GetSetting(r.Context(), database.SettingSiteTitle)
	if errors.Is(err, database.ErrNotFound) {
		title = "RX TempMail - OTP Ready"
	} else if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

type emailRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin,omitempty"`
	Type  string `json:"type,omitempty"`
}

func (h *Handler) checkPinRequired(w http.ResponseWriter, r *http.Request) {
	if !h.checkSubscription(w, r) {
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	required, err := h.db.HasPinRequirement(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"requiresPin": required})
}

func (h *Handler) verifyPin(w http.ResponseWriter, r *http.Request) {
	if !h.checkSubscription(w, r) {
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Pin == "" {
		h.writeError(w, http.StatusBadRequest, "Email and PIN are required")
		return
	}

	ok, err := h.db.VerifyPin(r.Context(), req.Email, req.Pin)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !ok {
		h.writeError(w, http.StatusForbidden, "Invalid PIN")
		return
	}

	session := h.sessions.GetOrCreate(w, r)
	session.MarkVerified(req.Email)

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	verified := false
	if session := h.sessions.Get(r); session != nil {
		verified = session.IsVerified(email)
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"isVerified": verified})
}

func (h *Handler) listEmails(w http.ResponseWriter, r *http.Request) {
	if !h.checkSubscription(w, r) {
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	verified := false
	if session := h.sessions.Get(r); session != nil {
		verified = session.IsVerified(req.Email)
	}

	summaries, err := h.db.ListByRecipient(r.Context(), req.Email, verified)
	if errors.Is(err, database.ErrAccessDenied) {
		h.writeJSON(w, http.StatusForbidden, map[string]any{
			"error":       "PIN verification required",
			"requiresPin": true,
		})
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if summaries == nil {
		summaries = []*models.MessageSummary{}
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

// messageResponse overrides text_body so HTML-only messages still render as
// readable text, and otp_code so it serializes as a string or null instead
// of the NullString struct.
type messageResponse struct {
	*models.Message
	TextBody string  `json:"text_body"`
	OTPCode  *string `json:"otp_code"`
}

func (h *Handler) getEmail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid email id")
		return
	}

	msg, err := h.db.GetMessageByID(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "Email not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	// The PIN gate applies here too, not just at the listing boundary.
	required, err := h.db.HasPinRequirement(r.Context(), msg.ToAddress)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if required {
		session := h.sessions.Get(r)
		if session == nil || !session.IsVerified(msg.ToAddress) {
			h.writeJSON(w, http.StatusForbidden, map[string]any{
				"error":       "PIN verification required",
				"requiresPin": true,
			})
			return
		}
	}

	textBody := msg.TextBody
	if textBody == "" && msg.HTMLBody != "" {
		if rendered, err := h.renderer.Render(msg.HTMLBody); err == nil {
			textBody = rendered
		}
	}

	var otpCode *string
	if msg.OTPCode.Valid {
		otpCode = &msg.OTPCode.String
	}

	h.writeJSON(w, http.StatusOK, &messageResponse{Message: msg, TextBody: textBody, OTPCode: otpCode})
}

func (h *Handler) generateOTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkSubscription(w, r) {
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	kind := req.Type
	if kind == "" {
		kind = "verification"
	}

	code, err := h.otp.Code()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to generate OTP")
		return
	}

	msg := otpgen.BuildMessage(req.Email, code, kind)
	if err := h.db.CreateMessage(r.Context(), msg); err != nil {
		h.logger.Error("failed to store generated otp", "to", req.Email, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to generate OTP email")
		return
	}

	h.logger.Info("otp email generated", "to", req.Email, "id", msg.ID)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"otp":     code,
		"emailId": msg.ID,
	})
}

type ownerLoginRequest struct {
	Pin string `json:"pin"`
}

func (h *Handler) ownerLogin(w http.ResponseWriter, r *http.Request) {
	var req ownerLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pin == "" {
		h.writeError(w, http.StatusBadRequest, "PIN is required")
		return
	}

	hash, err := h.db.GetSetting(r.Context(), database.SettingOwnerPin)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := h.auth.CheckPin(req.Pin, hash); err != nil {
		h.writeError(w, http.StatusUnauthorized, "Invalid PIN")
		return
	}

	token, err := h.auth.GenerateToken()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ownerCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ownerLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     ownerCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(ownerCookieName)
	if err != nil || h.auth.ValidateToken(cookie.Value) != nil {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}

	stats, err := h.db.MessageStats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) adminRecent(w http.ResponseWriter, r *http.Request) {
	if !h.requireOwner(w, r) {
		return
	}

	recent, err := h.db.ListRecent(r.Context(), 10)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if recent == nil {
		recent = []*models.MessageSummary{}
	}
	h.writeJSON(w, http.StatusOK, recent)
}
