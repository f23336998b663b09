package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/remote"
)

const resourceName = "reports"

// Client is the read/export variant of the resource client for the
// reports endpoint.
type Client struct {
	remote   *remote.Client
	endpoint string
	schemas  *apischema.Validator
	logger   *slog.Logger
}

func NewClient(rc *remote.Client, endpoint string, schemas *apischema.Validator, logger *slog.Logger) *Client {
	return &Client{
		remote:   rc,
		endpoint: endpoint,
		schemas:  schemas,
		logger:   logger.With("resource", resourceName),
	}
}

// Fetch runs GET ?type=. Failures come back as a FetchError around the cause.
func (c *Client) Fetch(ctx context.Context, typ Type) (*Report, error) {
	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: resourceName,
		Method:   http.MethodGet,
		URL:      c.endpoint,
		Query:    url.Values{"type": {string(typ)}},
	})
	if err == nil {
		err = c.schemas.Validate(apischema.ReportPayload, resp.Body)
	}
	var rep Report
	if err == nil {
		err = remote.DecodeJSON(resp.Body, &rep)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("report fetch failed", "type", typ, "error", err)
		return nil, internal.NewFetchError(resourceName, err)
	}

	if rep.Type == "" {
		rep.Type = typ
	}
	return &rep, nil
}

type exportRequest struct {
	Type   Type   `json:"type"`
	Format Format `json:"format"`
}

// Export runs POST {type, format}.
func (c *Client) Export(ctx context.Context, typ Type, format Format) (*ExportResult, error) {
	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: resourceName,
		Method:   http.MethodPost,
		URL:      c.endpoint,
		Body:     exportRequest{Type: typ, Format: format},
	})
	if err != nil {
		return nil, err
	}
	if err := c.schemas.Validate(apischema.ExportResult, resp.Body); err != nil {
		return nil, err
	}

	var out ExportResult
	if err := remote.DecodeJSON(resp.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
