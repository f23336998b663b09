package document

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/transport"
	"github.com/go-chi/chi"
)

// Handler serves the documents screen under /admin/documents.
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

type listView struct {
	Documents []Document `json:"documents"`
	// Stale is set when the refresh failed and the previous list is shown.
	Stale bool `json:"stale"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{DocType: Type(r.URL.Query().Get("type"))}
	err := h.Service.Load(r.Context(), filter)
	if errors.Is(err, context.Canceled) {
		return
	}
	h.WriteJSON(w, http.StatusOK, listView{Documents: h.Service.Documents(), Stale: err != nil})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	doc, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto CreateDocumentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	doc, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"document": doc})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError("id", "id must be a positive integer", internal.ErrCodeInvalidInput)
	}
	return id, nil
}
