// Package rest implements the metadata transport over the HTTP contract of
// a metadata service. Every response is an Envelope; its data is decoded
// with mapstructure so that loosely typed payloads (numeric instance ids,
// JDBC column maps) land in the same Go types.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/leapstack-labs/sqlcomplete/internal/metadata"
	"github.com/leapstack-labs/sqlcomplete/pkg/core"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	Endpoint string            `koanf:"endpoint"`
	Timeout  time.Duration     `koanf:"timeout"`
	Headers  map[string]string `koanf:"headers"`
}

// Client is a metadata.Transport talking to a REST metadata service.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers map[string]string
	logger  *slog.Logger
}

var _ metadata.Transport = (*Client)(nil)

// New creates a client for the service at cfg.Endpoint.
// A nil logger discards all log output.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("metadata endpoint not specified")
	}
	endpoint := cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("metadata endpoint must be http or https, got %q", cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		headers: cfg.Headers,
		logger:  logger,
	}, nil
}

func (c *Client) ListDatabaseConfigs(ctx context.Context) ([]core.DatabaseConfig, error) {
	var out []core.DatabaseConfig
	if err := c.do(ctx, http.MethodGet, PathConfigs, 0, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListInstances accepts either instance objects or bare numeric ids.
func (c *Client) ListInstances(ctx context.Context, dbType string) ([]core.Instance, error) {
	var raw []any
	if err := c.do(ctx, http.MethodGet, PathInstances, 0, url.Values{"type": {dbType}}, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]core.Instance, 0, len(raw))
	for _, item := range raw {
		inst := core.Instance{Type: dbType}
		switch v := item.(type) {
		case map[string]any:
			if err := decode(v, &inst); err != nil {
				return nil, err
			}
		default:
			id, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to decode instance id %v: %w", v, err)
			}
			inst.ID = id
		}
		if inst.Type == "" {
			inst.Type = dbType
		}
		out = append(out, inst)
	}
	return out, nil
}

func (c *Client) ListCatalogNames(ctx context.Context, dbType string, id int64) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, PathCatalogNames, id, url.Values{"type": {dbType}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSchemaNames(ctx context.Context, dbType string, id int64, catalog string) ([]string, error) {
	q := url.Values{"type": {dbType}}
	setOptional(q, "catalog", catalog)
	var out []string
	if err := c.do(ctx, http.MethodGet, PathSchemaNames, id, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTableAndViewNames(ctx context.Context, dbType string, id int64, catalog, schema string) ([]core.NameKind, error) {
	q := url.Values{"type": {dbType}}
	setOptional(q, "catalog", catalog)
	setOptional(q, "schema", schema)
	var out []core.NameKind
	if err := c.do(ctx, http.MethodGet, PathTableViewNames, id, q, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Kind = core.ObjectKind(strings.ToUpper(string(out[i].Kind)))
	}
	return out, nil
}

func (c *Client) ListTableColumns(ctx context.Context, dbType string, id int64, table core.TableCoordinator) ([]core.Column, error) {
	q := url.Values{"type": {dbType}, "table": {table.Table}}
	setOptional(q, "catalog", table.Catalog)
	setOptional(q, "schema", table.Schema)
	var wire []wireColumn
	if err := c.do(ctx, http.MethodGet, PathTableColumns, id, q, nil, &wire); err != nil {
		return nil, err
	}
	out := make([]core.Column, 0, len(wire))
	for _, w := range wire {
		out = append(out, core.Column{Name: w.name(), TypeName: w.typeName()})
	}
	return out, nil
}

// ListTablesColumns posts the coordinates in the request body; the contract
// uses POST only because the parameter list does not fit a query string.
func (c *Client) ListTablesColumns(ctx context.Context, dbType string, id int64, tables []core.TableCoordinator) ([]core.TableColumns, error) {
	body := make([]core.TableCoordinator, len(tables))
	for i, t := range tables {
		body[i] = core.TableCoordinator{Catalog: t.Catalog, Schema: t.Schema, Table: t.Table}
	}
	var out []core.TableColumns
	if err := c.do(ctx, http.MethodPost, PathTablesColumns, id, url.Values{"databaseType": {dbType}}, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func setOptional(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func (c *Client) url(path string, id int64, query url.Values) string {
	path = strings.ReplaceAll(path, "{id}", strconv.FormatInt(id, 10))
	u := c.base.ResolveReference(&url.URL{Path: path})
	u.RawQuery = query.Encode()
	return u.String()
}

// do performs one request and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, method, path string, id int64, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.url(path, id, query)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call metadata service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("metadata request",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: requestID}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to parse response: %w", decodeErr)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message, RequestID: requestID}
	}
	if env.Data == nil {
		return nil
	}
	return decode(env.Data, out)
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
