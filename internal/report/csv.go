package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
)

// NoData is the CSV body of a report with nothing to export.
const NoData = "Нет данных для экспорта"

// ToCSV renders the statistics block and every row section. Each section
// starts with its title and a header row taken from the first row's keys.
func ToCSV(r *Report) ([]byte, error) {
	if r.Empty() {
		return []byte(NoData), nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(r.Statistics) > 0 {
		values := make([]string, len(r.Statistics))
		for i, f := range r.Statistics {
			values[i] = cell(f.Value)
		}
		if err := writeAll(w, []string{"Статистика"}, r.Statistics.Keys(), values, []string{}); err != nil {
			return nil, err
		}
	}

	for _, s := range r.Sections() {
		header := s.Rows[0].Keys()
		if err := writeAll(w, []string{s.Title}, header); err != nil {
			return nil, err
		}
		for _, row := range s.Rows {
			line := make([]string, len(header))
			for i, key := range header {
				if v, ok := row.Get(key); ok {
					line[i] = cell(v)
				}
			}
			if err := w.Write(line); err != nil {
				return nil, err
			}
		}
		if err := w.Write([]string{}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAll(w *csv.Writer, records ...[]string) error {
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func cell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	default:
		return fmt.Sprint(x)
	}
}
