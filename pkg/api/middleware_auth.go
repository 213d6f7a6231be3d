package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
)

func (s *Server) authFailure(w http.ResponseWriter, status int, reason, message string) {
	if s.Metrics != nil {
		s.Metrics.RecordAuthFailure(reason)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	s.respondError(w, status, message)
}

// requireAuth validates the bearer token and that its user is still active,
// then stores the claims in the request context. A revoked token is 403;
// every other failure is 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.authFailure(w, http.StatusUnauthorized, "missing_token", "Not authenticated")
			return
		}

		claims, err := s.Tokens.ValidateToken(r.Context(), strings.TrimSpace(token))
		switch {
		case errors.Is(err, auth.ErrRevokedToken):
			s.authFailure(w, http.StatusForbidden, "revoked", "Token has been revoked")
			return
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrInvalidClaims):
			s.authFailure(w, http.StatusUnauthorized, "invalid_token", "Could not validate credentials")
			return
		case err != nil:
			s.logger.Error("token validation failed", logging.Error(err))
			s.respondError(w, http.StatusInternalServerError, "token validation failed")
			return
		}

		user, err := s.Directory.Get(r.Context(), claims.Username())
		if err != nil || !user.IsActive {
			s.authFailure(w, http.StatusUnauthorized, "unknown_user", "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// requireAdmin is requireAuth plus the admin role.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		if !claims.IsAdmin() {
			s.authFailure(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller returns the authenticated username. Only call it behind requireAuth.
func caller(r *http.Request) string {
	claims, _ := auth.ClaimsFromContext(r.Context())
	return claims.Username()
}
