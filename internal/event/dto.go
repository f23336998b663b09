package event

import (
	"net/url"
	"strings"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
)

type CreateEventDTO struct {
	Title             string  `json:"title"`
	Description       *string `json:"description,omitempty"`
	EventType         Type    `json:"event_type"`
	PlannedDate       *string `json:"planned_date,omitempty"`
	ResponsibleUserID *int64  `json:"responsible_user_id,omitempty"`
}

func (d CreateEventDTO) Normalize() CreateEventDTO {
	d.Title = strings.TrimSpace(d.Title)
	d.EventType = Type(strings.TrimSpace(string(d.EventType)))
	if d.EventType == "" {
		d.EventType = TypeTraining
	}
	d.Description = trimmed(d.Description)
	d.PlannedDate = trimmed(d.PlannedDate)
	return d
}

func (d CreateEventDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(500)
	v.Field("event_type", string(d.EventType)).Required().MaxLength(100)
	v.Field("planned_date", d.PlannedDate).DateFormat()
	return v.Validate()
}

// StatusPatch is the PUT body for a status change. CompletedDate is only
// sent for completed events.
type StatusPatch struct {
	Status        Status  `json:"status"`
	CompletedDate *string `json:"completed_date,omitempty"`
}

func (p StatusPatch) Validate() *internal.AppError {
	statuses := make([]string, 0, len(Statuses()))
	for _, s := range Statuses() {
		statuses = append(statuses, string(s))
	}

	v := validation.NewValidator()
	v.Field("status", string(p.Status)).Required().OneOf(statuses...)
	v.Field("completed_date", p.CompletedDate).DateFormat()
	return v.Validate()
}

// Filter narrows the list by status and type.
type Filter struct {
	Status Status
	Type   Type
}

func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	return q
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
