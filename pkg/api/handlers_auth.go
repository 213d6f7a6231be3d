package api

import (
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-commgraph/pkg/auth"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

// handleToken is the OAuth2 password flow: form fields username and password.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		s.respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.Directory.Authenticate(r.Context(), username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.authFailure(w, http.StatusUnauthorized, "bad_credentials", "Incorrect username or password")
		return
	}
	if err != nil {
		s.respondErr(w, r, err, "authenticate", "")
		return
	}

	token, _, err := s.Tokens.GenerateToken(user.Username, user.Role)
	if err != nil {
		s.respondErr(w, r, err, "issue token", "")
		return
	}

	s.logger.Info("token issued", logging.Username(user.Username))
	s.respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.Tokens.GetTokenDuration().Seconds()),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := s.Tokens.Revoke(r.Context(), claims); err != nil {
		s.respondErr(w, r, err, "logout", "")
		return
	}
	s.logger.Info("token revoked", logging.Username(claims.Username()))
	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.Directory.Get(r.Context(), caller(r))
	if err != nil {
		s.respondErr(w, r, err, "get user", "User not found")
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Directory.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err, "list users", "")
		return
	}
	if users == nil {
		users = []schema.User{}
	}
	s.respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req validation.UserCreate
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondErr(w, r, err, "create user", "")
		return
	}

	user, err := s.Directory.Create(r.Context(), req)
	if errors.Is(err, schema.ErrUserExists) {
		s.respondError(w, http.StatusConflict, "Username already registered")
		return
	}
	if err != nil {
		s.respondErr(w, r, err, "create user", "")
		return
	}
	s.respondJSON(w, http.StatusCreated, user)
}
