package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asubt-console/internal/transport"
)

// Handler serves /admin/reports.
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

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type screenView struct {
	Types   []option `json:"types"`
	Formats []option `json:"formats"`
	Report  *Report  `json:"report"`
	Cached  bool     `json:"cached"`
}

// Show renders the screen. With ?type= it shows a fresh cached report of
// that type, generating one on a miss. The shown report is the one exported.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	view := screenView{Types: typeOptions(), Formats: formatOptions(), Report: h.Service.Current()}

	if typ := Type(r.URL.Query().Get("type")); typ != "" {
		if rep, ok := h.Service.Show(typ); ok {
			view.Report, view.Cached = rep, true
		} else {
			rep, err := h.Service.Generate(r.Context(), typ)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					h.WriteAppError(w, err)
				}
				return
			}
			view.Report = rep
		}
	}
	h.WriteJSON(w, http.StatusOK, view)
}

type generateRequest struct {
	Type Type `json:"type"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if req.Type == "" {
		req.Type = TypeSummary
	}

	rep, err := h.Service.Generate(r.Context(), req.Type)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"report": rep})
}

type exportFormRequest struct {
	Format Format `json:"format"`
}

// Export answers with the artifact as an attachment, or with the server's
// message when the format has no client-side artifact.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportFormRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if req.Format == "" {
		req.Format = FormatJSON
	}

	out, err := h.Service.Export(r.Context(), req.Format)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	if out.Artifact == nil {
		h.WriteJSON(w, http.StatusOK, map[string]string{"message": out.Message})
		return
	}

	w.Header().Set("Content-Type", out.Artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Artifact.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Artifact.Body); err != nil {
		h.Logger.Warn("failed to write export", "error", err)
	}
}

func typeOptions() []option {
	out := make([]option, 0, len(Types()))
	for _, t := range Types() {
		out = append(out, option{Value: string(t), Label: t.Label()})
	}
	return out
}

func formatOptions() []option {
	out := make([]option, 0, len(Formats()))
	for _, f := range Formats() {
		out = append(out, option{Value: string(f), Label: f.Label()})
	}
	return out
}
