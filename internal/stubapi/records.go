package stubapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
)

func (s *Server) getDocuments(w http.ResponseWriter, r *http.Request) {
	id, byID, err := queryID(r)
	if err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	if byID {
		doc, ok := s.store.document(id)
		if !ok {
			s.WriteError(w, http.StatusNotFound, "Document not found")
			return
		}
		s.WriteJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
		return
	}

	docs := s.store.activeDocuments(r.URL.Query().Get("type"))
	s.WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

type documentBody struct {
	ID        int64   `json:"id"`
	Title     *string `json:"title"`
	DocType   string  `json:"doc_type"`
	Content   *string `json:"content"`
	FileURL   *string `json:"file_url"`
	CreatedBy *int64  `json:"created_by"`
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var body documentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	title := ""
	if body.Title != nil {
		title = strings.TrimSpace(*body.Title)
	}
	docType := strings.TrimSpace(body.DocType)
	if title == "" || docType == "" {
		s.WriteError(w, http.StatusBadRequest, "Title and doc_type are required")
		return
	}
	if body.CreatedBy == nil {
		fallback := int64(1)
		body.CreatedBy = &fallback
	}

	doc := s.store.addDocument(document.Document{
		Title:     title,
		DocType:   document.Type(docType),
		Content:   body.Content,
		FileURL:   body.FileURL,
		CreatedBy: body.CreatedBy,
	})
	s.WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "document": doc})
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	var body documentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
		s.WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	doc, ok := s.store.updateDocument(body.ID, func(d *document.Document) {
		if body.Title != nil && *body.Title != "" {
			d.Title = *body.Title
		}
		if body.Content != nil {
			d.Content = body.Content
		}
		if body.FileURL != nil {
			d.FileURL = body.FileURL
		}
	})
	if !ok {
		s.WriteError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "document": doc})
}

// deleteDocument marks the document deleted; it stays readable by id.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok, err := queryID(r)
	if err != nil || !ok {
		s.WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if _, found := s.store.updateDocument(id, func(d *document.Document) {
		d.Status = document.StatusDeleted
	}); !found {
		s.WriteError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	id, byID, err := queryID(r)
	if err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}
	if byID {
		ev, ok := s.store.event(id)
		if !ok {
			s.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		s.WriteJSON(w, http.StatusOK, map[string]interface{}{"event": ev})
		return
	}

	q := r.URL.Query()
	s.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": s.store.listEvents(q.Get("status"), q.Get("type"))})
}

type eventBody struct {
	ID                int64   `json:"id"`
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	EventType         string  `json:"event_type"`
	ResponsibleUserID *int64  `json:"responsible_user_id"`
	PlannedDate       *string `json:"planned_date"`
	Status            string  `json:"status"`
	CompletedDate     *string `json:"completed_date"`
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	title := ""
	if body.Title != nil {
		title = strings.TrimSpace(*body.Title)
	}
	eventType := strings.TrimSpace(body.EventType)
	if title == "" || eventType == "" {
		s.WriteError(w, http.StatusBadRequest, "Title and event_type are required")
		return
	}

	ev := s.store.addEvent(event.Event{
		Title:             title,
		Description:       body.Description,
		EventType:         event.Type(eventType),
		ResponsibleUserID: body.ResponsibleUserID,
		PlannedDate:       body.PlannedDate,
	})
	s.WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "event": ev})
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
		s.WriteError(w, http.StatusBadRequest, "Event ID is required")
		return
	}

	ev, ok := s.store.updateEvent(body.ID, func(e *event.Event) {
		if body.Title != nil && *body.Title != "" {
			e.Title = *body.Title
		}
		if body.Description != nil {
			e.Description = body.Description
		}
		if body.Status != "" {
			e.Status = event.Status(body.Status)
		}
		if body.CompletedDate != nil && *body.CompletedDate != "" {
			e.CompletedDate = body.CompletedDate
		}
	})
	if !ok {
		s.WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	s.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "event": ev})
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok, err := queryID(r)
	if err != nil || !ok {
		s.WriteError(w, http.StatusBadRequest, "Event ID is required")
		return
	}
	if !s.store.deleteEvent(id) {
		s.WriteError(w, http.StatusNotFound, "Event not found")
		return
	}
	s.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
