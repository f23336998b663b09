// Package resource is the generic list/create/update/remove client shared by
// the documents and events screens.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/remote"
)

// Spec describes one remote collection.
type Spec struct {
	// Name labels logs, metrics and error messages.
	Name     string
	Endpoint string
	// ListKey and ItemKey are the envelope keys, e.g. "documents" and "document".
	ListKey    string
	ItemKey    string
	ListSchema string
	ItemSchema string
}

type Client[T any] struct {
	remote  *remote.Client
	spec    Spec
	schemas *apischema.Validator
	logger  *slog.Logger
}

func New[T any](rc *remote.Client, spec Spec, schemas *apischema.Validator, logger *slog.Logger) *Client[T] {
	return &Client[T]{
		remote:  rc,
		spec:    spec,
		schemas: schemas,
		logger:  logger.With("resource", spec.Name),
	}
}

func (c *Client[T]) Name() string {
	return c.spec.Name
}

// List returns the collection in server order. On failure it returns nil and
// a FetchError wrapping the cause; cancellation is returned as is.
func (c *Client[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	items, err := c.list(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("list failed", "error", err)
		return nil, internal.NewFetchError(c.spec.Name, err)
	}
	return items, nil
}

func (c *Client[T]) list(ctx context.Context, query url.Values) ([]T, error) {
	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: c.spec.Name,
		Method:   http.MethodGet,
		URL:      c.spec.Endpoint,
		Query:    query,
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.envelope(resp.Body, c.spec.ListSchema, c.spec.ListKey)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, internal.NewProtocolError(fmt.Sprintf("Malformed %s list", c.spec.Name), internal.ErrCodeMalformedBody, err)
	}
	return items, nil
}

// Get reads one entity by id.
func (c *Client[T]) Get(ctx context.Context, id int64) (*T, error) {
	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: c.spec.Name,
		Method:   http.MethodGet,
		URL:      c.spec.Endpoint,
		Query:    idQuery(id),
	})
	if err != nil {
		return nil, err
	}
	return c.item(resp.Body)
}

// Create posts payload. The caller attaches the creator or responsible id.
// The returned entity holds whatever columns the server echoes back.
func (c *Client[T]) Create(ctx context.Context, payload interface{}) (*T, error) {
	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: c.spec.Name,
		Method:   http.MethodPost,
		URL:      c.spec.Endpoint,
		Body:     payload,
	})
	if err != nil {
		return nil, err
	}
	return c.item(resp.Body)
}

// Update sends PUT {id, ...patch}.
func (c *Client[T]) Update(ctx context.Context, id int64, patch interface{}) (*T, error) {
	body, err := mergeID(id, patch)
	if err != nil {
		return nil, err
	}

	resp, err := c.remote.Send(ctx, remote.Request{
		Resource: c.spec.Name,
		Method:   http.MethodPut,
		URL:      c.spec.Endpoint,
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	return c.item(resp.Body)
}

// Remove sends DELETE ?id=. The server status is reported as is; there is no retry.
func (c *Client[T]) Remove(ctx context.Context, id int64) error {
	_, err := c.remote.Send(ctx, remote.Request{
		Resource: c.spec.Name,
		Method:   http.MethodDelete,
		URL:      c.spec.Endpoint,
		Query:    idQuery(id),
	})
	return err
}

func (c *Client[T]) item(body []byte) (*T, error) {
	raw, err := c.envelope(body, c.spec.ItemSchema, c.spec.ItemKey)
	if err != nil {
		return nil, err
	}

	var entity T
	if err := json.Unmarshal(raw, &entity); err != nil {
		return nil, internal.NewProtocolError(fmt.Sprintf("Malformed %s record", c.spec.Name), internal.ErrCodeMalformedBody, err)
	}
	return &entity, nil
}

// envelope checks body against schema and returns the value under key.
func (c *Client[T]) envelope(body []byte, schema, key string) (json.RawMessage, error) {
	if schema != "" {
		if err := c.schemas.Validate(schema, body); err != nil {
			return nil, err
		}
	}

	var env map[string]json.RawMessage
	if err := remote.DecodeJSON(body, &env); err != nil {
		return nil, err
	}
	raw, ok := env[key]
	if !ok || string(raw) == "null" {
		return nil, internal.NewProtocolError(fmt.Sprintf("Response has no %q", key), internal.ErrCodeUnknownShape, nil)
	}
	return raw, nil
}

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

func mergeID(id int64, patch interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if patch != nil {
		raw, err := json.Marshal(patch)
		if err != nil {
			return nil, internal.NewValidationError("Patch cannot be encoded", internal.ErrCodeInvalidInput).WithCause(err)
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, internal.NewValidationError("Patch must be an object", internal.ErrCodeInvalidInput).WithCause(err)
		}
	}
	body["id"] = id
	return body, nil
}
