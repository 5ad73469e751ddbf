package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"swapshelf/internal/util"
	"swapshelf/pkg/auth"
	"swapshelf/pkg/domain"
	"swapshelf/pkg/moderation"
	"swapshelf/pkg/query"
)

var adminActor = domain.Actor{IsAdmin: true}

func (s *Server) adminOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "admin.authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		valid, err := s.sessions.Verify(token)
		if err != nil {
			s.audit(r, "admin.authorize", "fail", "reason", "verify_error")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !valid {
			s.audit(r, "admin.authorize", "fail", "reason", "invalid_or_revoked")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowLogin(w, r) {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "admin.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.adminUsername)) == 1
	passwordOK := auth.CheckPassword(req.Password, s.adminPasswordHash)
	if !usernameOK || !passwordOK {
		s.audit(r, "admin.login", "fail", "reason", "bad_credentials")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.sessions.NewAdminSession()
	if err != nil {
		slog.Error("session issue failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "admin.login", "success")
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.sessions.Revoke(token); err != nil {
		slog.Error("session revoke failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.audit(r, "admin.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Query.AdminStats()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	filters, ok := parseFilters(w, r, query.AudienceAdmin)
	if !ok {
		return
	}
	result, err := s.app.Query.Query(query.AudienceAdmin, filters, parsePage(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	result.Items = s.presentAll(r, result.Items)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminListingByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitListingPath(r.URL.Path, "/api/admin/listings/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if action == "" {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		s.handleAdminDelete(w, r, id)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if action == "feature" {
		listing, err := s.app.Moderation.ToggleFeatured(id, adminActor)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.audit(r, "admin.feature", "success", "listing_id", id, "featured", listing.Featured)
		writeJSON(w, http.StatusOK, s.present(r, listing))
		return
	}

	event, ok := moderation.ParseEvent(action)
	if !ok || event == moderation.EventDelete {
		http.NotFound(w, r)
		return
	}
	listing, err := s.app.Moderation.Act(id, event, adminActor)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.audit(r, "admin."+string(event), "success", "listing_id", id)
	if listing.ID == "" {
		// reject removed the record
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s.present(r, listing))
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request, id string) {
	listing, found, err := s.app.Store.FindByID(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if _, err := s.app.Moderation.Act(id, moderation.EventDelete, adminActor); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.app.CleanupImages(r.Context(), listing.Images)
	s.audit(r, "admin.delete", "success", "listing_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) allowLogin(w http.ResponseWriter, r *http.Request) bool {
	if s.loginLimiter == nil {
		return true
	}
	key := "login|" + util.ClientIP(r, s.trusted)
	if s.loginLimiter.Allow(key) {
		return true
	}
	s.audit(r, "admin.login", "rate_limited")
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many login attempts")
	return false
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}
