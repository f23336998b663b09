package stubapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/frahmantamala/asubt-console/internal/report"
)

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	typ := report.Type(r.URL.Query().Get("type"))
	if typ == "" {
		typ = report.TypeSummary
	}

	rep := report.Report{Type: typ, GeneratedAt: s.now().Format(isoLayout)}
	switch typ {
	case report.TypeSummary:
		rep.Statistics = report.Record{
			{Key: "total_users", Value: s.store.activeUsers()},
			{Key: "total_documents", Value: len(s.store.activeDocuments(""))},
			{Key: "pending_events", Value: s.store.pendingEvents()},
			{Key: "active_incidents", Value: 0},
		}
	case report.TypeDocuments:
		for _, d := range s.store.activeDocuments("") {
			rep.Documents = append(rep.Documents, report.Record{
				{Key: "id", Value: d.ID},
				{Key: "title", Value: d.Title},
				{Key: "doc_type", Value: d.DocType},
				{Key: "created_at", Value: d.CreatedAt},
				{Key: "status", Value: d.Status},
				{Key: "creator_name", Value: d.CreatorName},
			})
		}
	case report.TypeEvents:
		for _, e := range s.store.listEvents("", "") {
			rep.Events = append(rep.Events, report.Record{
				{Key: "id", Value: e.ID},
				{Key: "title", Value: e.Title},
				{Key: "event_type", Value: e.EventType},
				{Key: "status", Value: e.Status},
				{Key: "planned_date", Value: e.PlannedDate},
				{Key: "completed_date", Value: e.CompletedDate},
				{Key: "responsible_name", Value: e.ResponsibleName},
			})
		}
	}
	// training, incidents, sout and form7 have no backing records here and
	// come back with only the header fields.

	s.WriteJSON(w, http.StatusOK, rep)
}

type exportBody struct {
	Type   string `json:"type"`
	Format string `json:"format"`
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	body := exportBody{Type: string(report.TypeSummary), Format: string(report.FormatJSON)}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	content := report.Record{
		{Key: "title", Value: "Отчёт АСУБТ - " + body.Type},
		{Key: "generated_at", Value: s.now().Format(isoLayout)},
		{Key: "format", Value: body.Format},
	}
	if report.Type(body.Type) == report.TypeForm7 {
		content = append(content, report.Field{Key: "data", Value: report.Record{
			{Key: "report_name", Value: report.TypeForm7.Label()},
			{Key: "period", Value: "Текущий год"},
			{Key: "statistics", Value: report.Record{
				{Key: "minor_incidents", Value: 0},
				{Key: "moderate_incidents", Value: 0},
				{Key: "severe_incidents", Value: 0},
				{Key: "fatal_incidents", Value: 0},
			}},
		}})
	}

	s.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"report":         content,
		"download_ready": true,
		"message":        fmt.Sprintf("Отчёт в формате %s готов к скачиванию", body.Format),
	})
}
