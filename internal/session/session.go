package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Persisted slot names. They match the keys the web client used so a
// migrated slot table keeps working.
const (
	TokenSlot = "asubt_token"
	UserSlot  = "asubt_user"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Rank orders roles for route checks: user < admin < superadmin.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return 0
}

func IsAdminRole(r Role) bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func IsSuperAdminRole(r Role) bool {
	return r == RoleSuperAdmin
}

type Identity struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

func (i Identity) Validate() error {
	if i.ID <= 0 {
		return errors.New("identity id is missing")
	}
	if strings.TrimSpace(i.Email) == "" {
		return errors.New("identity email is missing")
	}
	if !i.Role.Valid() {
		return fmt.Errorf("identity role %q is not recognised", i.Role)
	}
	return nil
}

type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"user"`
}

// The predicates below are the only place roles are interpreted.
// They are derived on every call and safe on a nil session.

func (s *Session) IsAuthenticated() bool {
	return s != nil
}

func (s *Session) IsAdmin() bool {
	return s != nil && IsAdminRole(s.Identity.Role)
}

func (s *Session) IsSuperAdmin() bool {
	return s != nil && IsSuperAdminRole(s.Identity.Role)
}

func (s *Session) Role() Role {
	if s == nil {
		return ""
	}
	return s.Identity.Role
}

// SlotRepository is durable key/value storage for the two session slots.
type SlotRepository interface {
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Save(ctx context.Context, slots map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store is the single writer of the current session.
type Store struct {
	mu      sync.RWMutex
	repo    SlotRepository
	current *Session
	logger  *slog.Logger
}

func NewStore(repo SlotRepository, logger *slog.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// Restore loads the persisted pair. Absent or malformed slots leave the
// session empty; token expiry is not checked here.
func (s *Store) Restore(ctx context.Context) error {
	slots, err := s.repo.Load(ctx, TokenSlot, UserSlot)
	if err != nil {
		s.swap(nil)
		return fmt.Errorf("load session slots: %w", err)
	}

	token, user := slots[TokenSlot], slots[UserSlot]
	if token == "" || user == "" {
		s.swap(nil)
		return nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(user), &identity); err != nil {
		s.logger.Warn("persisted identity is malformed, starting signed out", "error", err)
		s.swap(nil)
		return nil
	}
	if err := identity.Validate(); err != nil {
		s.logger.Warn("persisted identity is invalid, starting signed out", "error", err)
		s.swap(nil)
		return nil
	}

	s.swap(&Session{Token: token, Identity: identity})
	s.logger.Debug("session restored", "user_id", identity.ID, "role", identity.Role)
	return nil
}

// Set persists sess and then makes it current. On a storage failure the
// previous session stays in place.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("session token is empty")
	}
	if err := sess.Identity.Validate(); err != nil {
		return err
	}

	user, err := json.Marshal(sess.Identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, map[string]string{TokenSlot: sess.Token, UserSlot: string(user)}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = &sess
	return nil
}

// Clear empties the session. The in-memory copy is dropped even if the
// slots cannot be deleted.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.repo.Delete(ctx, TokenSlot, UserSlot); err != nil {
		return fmt.Errorf("delete session slots: %w", err)
	}
	return nil
}

// Current returns a copy of the session, or nil when signed out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Credentials feeds the remote client.
func (s *Store) Credentials() (string, int64, bool) {
	cur := s.Current()
	if cur == nil {
		return "", 0, false
	}
	return cur.Token, cur.Identity.ID, true
}

func (s *Store) swap(sess *Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}
