package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const Screen = "reports"

type Type string

const (
	TypeSummary   Type = "summary"
	TypeDocuments Type = "documents"
	TypeEvents    Type = "events"
	TypeTraining  Type = "training"
	TypeIncidents Type = "incidents"
	TypeSOUT      Type = "sout"
	TypeForm7     Type = "form7"
)

var typeLabels = map[Type]string{
	TypeSummary:   "Сводный отчёт",
	TypeDocuments: "Отчёт по документам",
	TypeEvents:    "Отчёт по мероприятиям",
	TypeTraining:  "Отчёт по обучению",
	TypeIncidents: "Отчёт по инцидентам",
	TypeSOUT:      "Отчёт по СОУТ",
	TypeForm7:     "Форма 7-травматизм",
}

func Types() []Type {
	return []Type{TypeSummary, TypeDocuments, TypeEvents, TypeTraining, TypeIncidents, TypeSOUT, TypeForm7}
}

func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

var formatLabels = map[Format]string{
	FormatJSON: "JSON (Просмотр)",
	FormatCSV:  "CSV (Excel)",
	FormatPDF:  "PDF",
}

func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatPDF}
}

func (f Format) Valid() bool {
	_, ok := formatLabels[f]
	return ok
}

func (f Format) Label() string {
	if l, ok := formatLabels[f]; ok {
		return l
	}
	return string(f)
}

// Field is one column of a report row.
type Field struct {
	Key   string
	Value interface{}
}

// Record is a JSON object that keeps the server's key order, which becomes
// the column order of exported tables.
type Record []Field

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("report record: expected object, got %v", tok)
	}

	out := Record{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("report record: unexpected key %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

func (r Record) Get(key string) (interface{}, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Report is the payload of GET ?type=. Only the sections of the requested
// type are present.
type Report struct {
	Type        Type     `json:"type"`
	GeneratedAt string   `json:"generated_at"`
	Statistics  Record   `json:"statistics,omitempty"`
	Documents   []Record `json:"documents,omitempty"`
	Events      []Record `json:"events,omitempty"`
	Training    []Record `json:"training,omitempty"`
	Incidents   []Record `json:"incidents,omitempty"`
	Assessments []Record `json:"assessments,omitempty"`
}

// Section is a titled table of a report.
type Section struct {
	Title string
	Rows  []Record
}

// Sections returns the non-empty row sections in display order.
func (r *Report) Sections() []Section {
	all := []Section{
		{Title: "Документы", Rows: r.Documents},
		{Title: "Мероприятия", Rows: r.Events},
		{Title: "Обучение", Rows: r.Training},
		{Title: "Инциденты", Rows: r.Incidents},
		{Title: "СОУТ", Rows: r.Assessments},
	}

	out := make([]Section, 0, len(all))
	for _, s := range all {
		if len(s.Rows) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (r *Report) Empty() bool {
	return r == nil || (len(r.Statistics) == 0 && len(r.Sections()) == 0)
}

// ExportResult is the answer of POST {type, format}. Report is kept raw
// because its shape depends on the type.
type ExportResult struct {
	Success       bool            `json:"success"`
	Report        json.RawMessage `json:"report"`
	DownloadReady bool            `json:"download_ready"`
	Message       string          `json:"message"`
}

// Artifact is a file produced by an export.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}
