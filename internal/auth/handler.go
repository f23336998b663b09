package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/transport"
)

// Handler exposes the session to the shell under /api/session.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type sessionView struct {
	Authenticated bool        `json:"authenticated"`
	IsAdmin       bool        `json:"is_admin"`
	IsSuperAdmin  bool        `json:"is_super_admin"`
	User          interface{} `json:"user"`
}

func (h *Handler) view() sessionView {
	cur := h.Service.Current()
	v := sessionView{
		Authenticated: cur.IsAuthenticated(),
		IsAdmin:       cur.IsAdmin(),
		IsSuperAdmin:  cur.IsSuperAdmin(),
	}
	if cur != nil {
		v.User = cur.Identity
	}
	return v
}

func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.view())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if _, err := h.Service.Login(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, h.view())
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if _, err := h.Service.Register(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, h.view())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		h.WriteAppError(w, internal.NewServerError("failed to clear session", http.StatusInternalServerError).WithCause(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Check validates the stored token against the identity endpoint.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	valid, err := h.Service.Validate(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
