package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/frahmantamala/asubt-console/internal/session"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type authSuccess struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    session.Identity `json:"user"`
}

func (s *Server) identity(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "validate" {
		s.validate(w, r)
		return
	}

	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))

	switch action {
	case "login":
		s.login(w, body)
	case "register":
		s.register(w, body)
	default:
		s.WriteError(w, http.StatusBadRequest, "Invalid request")
	}
}

func (s *Server) login(w http.ResponseWriter, body credentials) {
	if body.Email == "" || body.Password == "" {
		s.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, ok := s.store.userByEmail(body.Email)
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(body.Password)) != nil {
		s.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !u.Active {
		s.WriteError(w, http.StatusForbidden, "Account is disabled")
		return
	}

	s.issue(w, http.StatusOK, u.Identity)
}

func (s *Server) register(w http.ResponseWriter, body credentials) {
	if body.Email == "" || body.Password == "" || strings.TrimSpace(body.FullName) == "" {
		s.WriteError(w, http.StatusBadRequest, "Email, password and full_name are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), s.cfg.BCryptCost)
	if err != nil {
		s.WriteError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	identity, ok := s.store.addUser(user{
		Identity: session.Identity{
			Email:      body.Email,
			FullName:   strings.TrimSpace(body.FullName),
			Role:       session.RoleUser,
			Department: body.Department,
			Position:   body.Position,
		},
		PasswordHash: string(hash),
		Active:       true,
	})
	if !ok {
		s.WriteError(w, http.StatusConflict, "User already exists")
		return
	}

	s.Logger.Info("user registered", "user_id", identity.ID)
	s.issue(w, http.StatusCreated, identity)
}

func (s *Server) issue(w http.ResponseWriter, status int, identity session.Identity) {
	token, err := s.tokens.Issue(identity)
	if err != nil {
		s.WriteError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.WriteJSON(w, status, authSuccess{Success: true, Token: token, User: identity})
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tokens.Validate(s.ExtractToken(r)); err != nil {
		s.WriteError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	s.WriteJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
