package event

import (
	"strings"
	"time"

	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
)

const (
	Screen         = "events"
	CalendarScreen = "calendar"
)

type Type string

const (
	TypeTraining   Type = "training"
	TypeInspection Type = "inspection"
	TypeMedical    Type = "medical"
	TypeSOUT       Type = "sout"
	TypeOther      Type = "other"
)

var typeLabels = map[Type]string{
	TypeTraining:   "Обучение",
	TypeInspection: "Проверка",
	TypeMedical:    "Медосмотр",
	TypeSOUT:       "СОУТ",
	TypeOther:      "Другое",
}

func Types() []Type {
	return []Type{TypeTraining, TypeInspection, TypeMedical, TypeSOUT, TypeOther}
}

func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
)

var statusLabels = map[Status]string{
	StatusPlanned:    "Запланировано",
	StatusInProgress: "В процессе",
	StatusCompleted:  "Завершено",
	StatusOverdue:    "Просрочено",
}

func Statuses() []Status {
	return []Status{StatusPlanned, StatusInProgress, StatusCompleted, StatusOverdue}
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Event is a planned safety activity. Dates are kept as the server sends them.
type Event struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Description       *string `json:"description,omitempty"`
	EventType         Type    `json:"event_type"`
	ResponsibleUserID *int64  `json:"responsible_user_id,omitempty"`
	ResponsibleName   *string `json:"responsible_name,omitempty"`
	PlannedDate       *string `json:"planned_date,omitempty"`
	CompletedDate     *string `json:"completed_date,omitempty"`
	Status            Status  `json:"status"`
	CreatedAt         string  `json:"created_at,omitempty"`
}

// PlannedDay is the planned date as a local calendar day. ok is false when
// the event has no usable planned date.
func (e Event) PlannedDay(loc *time.Location) (day time.Time, ok bool) {
	if e.PlannedDate == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(*e.PlannedDate)
	if len(raw) < len(validation.DateLayout) {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(validation.DateLayout, raw[:len(validation.DateLayout)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
