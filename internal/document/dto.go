package document

import (
	"net/url"
	"strings"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
)

type CreateDocumentDTO struct {
	Title     string  `json:"title"`
	DocType   Type    `json:"doc_type"`
	Content   *string `json:"content,omitempty"`
	FileURL   *string `json:"file_url,omitempty"`
	CreatedBy *int64  `json:"created_by,omitempty"`
}

func (d CreateDocumentDTO) Normalize() CreateDocumentDTO {
	d.Title = strings.TrimSpace(d.Title)
	d.DocType = Type(strings.TrimSpace(string(d.DocType)))
	if d.DocType == "" {
		d.DocType = TypeInstruction
	}
	d.Content = trimmed(d.Content)
	d.FileURL = trimmed(d.FileURL)
	return d
}

func (d CreateDocumentDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(500)
	v.Field("doc_type", string(d.DocType)).Required().MaxLength(100)
	v.Field("file_url", d.FileURL).MaxLength(2000)
	return v.Validate()
}

// Filter narrows the list. The endpoint only knows the type filter.
type Filter struct {
	DocType Type
}

func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.DocType != "" {
		q.Set("type", string(f.DocType))
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
