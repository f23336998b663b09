package document

// Screen is the notification and lifetime name of the documents screen.
const Screen = "documents"

type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Type is the document kind; the server accepts any string, the screen
// offers these.
type Type string

const (
	TypeInstruction Type = "instruction"
	TypeRegulation  Type = "regulation"
	TypeOrder       Type = "order"
	TypeProtocol    Type = "protocol"
	TypeOther       Type = "other"
)

var typeLabels = map[Type]string{
	TypeInstruction: "Инструкция",
	TypeRegulation:  "Положение",
	TypeOrder:       "Приказ",
	TypeProtocol:    "Протокол",
	TypeOther:       "Другое",
}

func Types() []Type {
	return []Type{TypeInstruction, TypeRegulation, TypeOrder, TypeProtocol, TypeOther}
}

// Label is the display name of t, or t itself for kinds the screen does not know.
func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Document is a reference to a safety document. The file itself lives
// elsewhere; FileURL points at it. Timestamps are kept as the server sends them.
type Document struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	DocType     Type    `json:"doc_type"`
	Content     *string `json:"content,omitempty"`
	FileURL     *string `json:"file_url,omitempty"`
	CreatedBy   *int64  `json:"created_by,omitempty"`
	CreatorName *string `json:"creator_name,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	Status      Status  `json:"status,omitempty"`
}
