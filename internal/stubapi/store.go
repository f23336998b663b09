package stubapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/session"
)

// Layouts of the timestamps the endpoints emit.
const (
	timestampLayout = "2006-01-02 15:04:05.000000"
	isoLayout       = "2006-01-02T15:04:05.000000"
)

const listLimit = 100

type user struct {
	session.Identity
	PasswordHash string
	Active       bool
}

// store is the in-memory state behind the stub endpoints.
type store struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[int64]*user
	documents map[int64]*document.Document
	events    map[int64]*event.Event
	nextUser  int64
	nextDoc   int64
	nextEvent int64
}

func newStore(now func() time.Time) *store {
	return &store{
		now:       now,
		users:     make(map[int64]*user),
		documents: make(map[int64]*document.Document),
		events:    make(map[int64]*event.Event),
	}
}

func (s *store) stamp() string {
	return s.now().Format(timestampLayout)
}

func (s *store) userByEmail(email string) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, true
		}
	}
	return nil, false
}

// addUser returns false when the email is taken.
func (s *store) addUser(u user) (session.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return session.Identity{}, false
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users[u.ID] = &u
	return u.Identity, true
}

func (s *store) fullName(id *int64) *string {
	if id == nil {
		return nil
	}
	u, ok := s.users[*id]
	if !ok {
		return nil
	}
	name := u.FullName
	return &name
}

func (s *store) activeUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, u := range s.users {
		if u.Active {
			n++
		}
	}
	return n
}

func (s *store) document(id int64) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[id]
	if !ok {
		return document.Document{}, false
	}
	out := *d
	out.CreatorName = s.fullName(d.CreatedBy)
	return out, true
}

// activeDocuments lists newest first.
func (s *store) activeDocuments(docType string) []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if d.Status != document.StatusActive {
			continue
		}
		if docType != "" && string(d.DocType) != docType {
			continue
		}
		cp := *d
		cp.CreatorName = s.fullName(d.CreatedBy)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > listLimit {
		out = out[:listLimit]
	}
	return out
}

func (s *store) addDocument(d document.Document) document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDoc++
	d.ID = s.nextDoc
	d.CreatedAt = s.stamp()
	d.Status = document.StatusActive
	s.documents[d.ID] = &d

	out := d
	out.CreatorName = s.fullName(d.CreatedBy)
	return out
}

func (s *store) updateDocument(id int64, fn func(d *document.Document)) (document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.documents[id]
	if !ok {
		return document.Document{}, false
	}
	fn(d)
	return *d, true
}

func (s *store) event(id int64) (event.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return event.Event{}, false
	}
	out := *e
	out.ResponsibleName = s.fullName(e.ResponsibleUserID)
	return out, true
}

// listEvents orders by planned date, latest first, undated last.
func (s *store) listEvents(status, typ string) []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]event.Event, 0, len(s.events))
	for _, e := range s.events {
		if status != "" && string(e.Status) != status {
			continue
		}
		if typ != "" && string(e.EventType) != typ {
			continue
		}
		cp := *e
		cp.ResponsibleName = s.fullName(e.ResponsibleUserID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PlannedDate, out[j].PlannedDate
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a == *b:
			return out[i].ID > out[j].ID
		}
		return *a > *b
	})
	if len(out) > listLimit {
		out = out[:listLimit]
	}
	return out
}

func (s *store) addEvent(e event.Event) event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEvent++
	e.ID = s.nextEvent
	e.CreatedAt = s.stamp()
	e.Status = event.StatusPlanned
	s.events[e.ID] = &e

	out := e
	out.ResponsibleName = s.fullName(e.ResponsibleUserID)
	return out
}

func (s *store) updateEvent(id int64, fn func(e *event.Event)) (event.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return event.Event{}, false
	}
	fn(e)
	return *e, true
}

func (s *store) deleteEvent(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return false
	}
	delete(s.events, id)
	return true
}

func (s *store) pendingEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.events {
		if e.Status == event.StatusPlanned || e.Status == event.StatusInProgress {
			n++
		}
	}
	return n
}
