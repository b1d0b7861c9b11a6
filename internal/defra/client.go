package defra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrUnhealthy is returned when DefraDB health check fails.
var ErrUnhealthy = errors.New("defra health check failed")

// Client is a DefraDB HTTP/GraphQL client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a new DefraDB client.
func NewClient(url string) *Client {
	return &Client{
		url: strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the base URL of the DefraDB node.
func (c *Client) URL() string {
	return c.url
}

// GQLRequest represents a GraphQL request.
type GQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GQLResponse represents a GraphQL response.
type GQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []GQLError     `json:"errors,omitempty"`
}

// GQLError represents a GraphQL error.
type GQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Error returns the first error message or empty string.
func (r *GQLResponse) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Docs returns the documents returned under the given top-level key.
func (r *GQLResponse) Docs(key string) []map[string]any {
	raw, ok := r.Data[key].([]any)
	if !ok {
		return nil
	}
	docs := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if doc, ok := d.(map[string]any); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// HealthCheck checks if DefraDB is healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/health-check", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Execute sends a GraphQL request and returns the response.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*GQLResponse, error) {
	reqBody := GQLRequest{
		Query:     query,
		Variables: variables,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/api/v0/graphql", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("defra server error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		return nil, fmt.Errorf("defra returned empty response (status %d)", resp.StatusCode)
	}

	var gqlResp GQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w (body: %s)", err, string(respBody))
	}

	return &gqlResp, nil
}

// AddSchema adds a GraphQL schema to DefraDB.
func (c *Client) AddSchema(ctx context.Context, schema string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/api/v0/schema", strings.NewReader(schema))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("schema error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Query executes a query and returns the results.
func (c *Client) Query(ctx context.Context, query string) (*GQLResponse, error) {
	return c.Execute(ctx, query, nil)
}

// Mutation executes a mutation.
func (c *Client) Mutation(ctx context.Context, mutation string, variables map[string]any) (*GQLResponse, error) {
	return c.Execute(ctx, mutation, variables)
}

// WriteResult is the outcome of a single-document write.
type WriteResult struct {
	DocID string
	CID   string
}

// Upsert creates or updates the document whose keyField equals fields[keyField].
// Every field value is sent as a GraphQL variable named after the field.
func (c *Client) Upsert(ctx context.Context, collection, keyField string, fields map[string]any) (WriteResult, error) {
	key, ok := fields[keyField]
	if !ok {
		return WriteResult{}, fmt.Errorf("upsert %s: missing key field %q", collection, keyField)
	}
	if keyStr, ok := key.(string); ok {
		if err := ValidateID(keyStr); err != nil {
			return WriteResult{}, fmt.Errorf("upsert %s: %w", collection, err)
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !IDPattern.MatchString(name) {
			return WriteResult{}, fmt.Errorf("upsert %s: invalid field name %q", collection, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	varDefs := make([]string, 0, len(names))
	inputs := make([]string, 0, len(names))
	for _, name := range names {
		varDefs = append(varDefs, fmt.Sprintf("$%s: %s", name, inferGraphQLType(fields[name])))
		inputs = append(inputs, fmt.Sprintf("%s: $%s", name, name))
	}
	input := "{" + strings.Join(inputs, ", ") + "}"

	mutation := fmt.Sprintf(`mutation(%s) { upsert_%s(filter: {%s: {_eq: $%s}}, create: %s, update: %s) { _docID _version { cid } } }`,
		strings.Join(varDefs, ", "), collection, keyField, keyField, input, input)

	resp, err := c.Mutation(ctx, mutation, fields)
	if err != nil {
		return WriteResult{}, err
	}
	if errMsg := resp.Error(); errMsg != "" {
		return WriteResult{}, fmt.Errorf("upsert error: %s", errMsg)
	}

	docs := resp.Docs("upsert_" + collection)
	if len(docs) == 0 {
		return WriteResult{}, fmt.Errorf("unexpected response format: %+v", resp.Data)
	}

	result := WriteResult{}
	if docID, ok := docs[0]["_docID"].(string); ok {
		result.DocID = docID
	}
	if cids := extractVersionCIDs(docs[0]); len(cids) > 0 {
		result.CID = cids[0]
	}
	return result, nil
}

func extractVersionCIDs(doc map[string]any) []string {
	raw, ok := doc["_version"].([]any)
	if !ok {
		return nil
	}
	cids := make([]string, 0, len(raw))
	for _, entry := range raw {
		version, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if cid, ok := version["cid"].(string); ok && cid != "" {
			cids = append(cids, cid)
		}
	}
	return cids
}
