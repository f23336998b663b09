// Package apischema checks remote response bodies against the embedded
// OpenAPI contract so unknown shapes surface as protocol errors.
package apischema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/getkin/kin-openapi/openapi3"
)

// Schema names from components/schemas.
const (
	AuthSuccess      = "AuthSuccess"
	TokenValidation  = "TokenValidation"
	DocumentList     = "DocumentList"
	DocumentEnvelope = "DocumentEnvelope"
	EventList        = "EventList"
	EventEnvelope    = "EventEnvelope"
	ReportPayload    = "ReportPayload"
	ExportResult     = "ExportResult"
)

//go:embed openapi.yml
var spec []byte

// Spec returns the raw contract, served by the shell at /openapi.yml.
func Spec() []byte {
	return spec
}

type Validator struct {
	doc *openapi3.T
}

func NewValidator() (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi contract: %w", err)
	}
	return &Validator{doc: doc}, nil
}

// Validate checks body against the named schema. A nil Validator accepts everything.
func (v *Validator) Validate(schemaName string, body []byte) error {
	if v == nil {
		return nil
	}

	ref, ok := v.doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return fmt.Errorf("unknown schema %q", schemaName)
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return internal.NewProtocolError("Malformed response body", internal.ErrCodeMalformedBody, err)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return internal.NewProtocolError(fmt.Sprintf("Unexpected %s response", schemaName), internal.ErrCodeUnknownShape, err)
	}
	return nil
}
