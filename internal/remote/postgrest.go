package remote

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
)

// pgUndefinedColumn is the Postgres error code surfaced by PostgREST when a
// select or filter names a column that does not exist.
const pgUndefinedColumn = "42703"

// PostgRESTClient implements Tabular against a PostgREST-style HTTP API
// (the flavor exposed by hosted Postgres platforms: /rest/v1/<table> with
// query-string predicates and JSON row bodies).
type PostgRESTClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

var _ Tabular = (*PostgRESTClient)(nil)

// NewPostgRESTClient creates a client for the given project URL. The API key
// is sent as both apikey header and bearer token, matching the anon-key
// convention. An expiring key is worth a warning up front, see CheckAPIKey.
func NewPostgRESTClient(baseURL, apiKey string, logger *slog.Logger) *PostgRESTClient {
	if logger == nil {
		logger = slog.Default()
	}
	CheckAPIKey(apiKey, logger)
	return &PostgRESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// apiError is the JSON error body PostgREST returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Select implements Tabular.
func (c *PostgRESTClient) Select(ctx context.Context, table string, q SelectQuery) ([]Row, error) {
	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	}
	for col, val := range q.Eq {
		params.Set(col, "eq."+fmt.Sprint(val))
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		params.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.do(ctx, http.MethodGet, table, params, nil, nil)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows from %s: %w", table, err)
	}
	return rows, nil
}

// Upsert implements Tabular.
func (c *PostgRESTClient) Upsert(ctx context.Context, table string, row Row) error {
	headers := map[string]string{"Prefer": "resolution=merge-duplicates"}
	_, err := c.do(ctx, http.MethodPost, table, nil, row, headers)
	return err
}

// Insert implements Tabular.
func (c *PostgRESTClient) Insert(ctx context.Context, table string, row Row) error {
	_, err := c.do(ctx, http.MethodPost, table, nil, row, nil)
	return err
}

// Update implements Tabular.
func (c *PostgRESTClient) Update(ctx context.Context, table string, set Row, column string, value any) error {
	params := url.Values{}
	params.Set(column, "eq."+fmt.Sprint(value))
	_, err := c.do(ctx, http.MethodPatch, table, params, set, nil)
	return err
}

// Delete implements Tabular. Prefer: return=representation makes PostgREST
// echo the deleted rows so the caller learns how many matched.
func (c *PostgRESTClient) Delete(ctx context.Context, table string, column string, value any) (int, error) {
	params := url.Values{}
	params.Set(column, "eq."+fmt.Sprint(value))
	headers := map[string]string{"Prefer": "return=representation"}
	body, err := c.do(ctx, http.MethodDelete, table, params, nil, headers)
	if err != nil {
		return 0, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode deleted rows from %s: %w", table, err)
	}
	return len(rows), nil
}

// do runs one REST call and maps error bodies to typed errors.
func (c *PostgRESTClient) do(ctx context.Context, method, table string, params url.Values, payload any, headers map[string]string) ([]byte, error) {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", table, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			if apiErr.Code == pgUndefinedColumn {
				return nil, fmt.Errorf("%s.%s: %w", table, apiErr.Message, ErrUnknownColumn)
			}
			return nil, fmt.Errorf("%s %s: %w", method, table, &apiErr)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, table, resp.StatusCode)
	}
	return body, nil
}
