// Package pinecone is a minimal HTTP client for the Pinecone data plane.
// Only the three operations the service needs are implemented: query,
// upsert, and delete.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sie-engine/siechat/internal/domain"
)

const (
	// TopK is the number of nearest neighbors requested per query.
	TopK = 5

	queryTimeout = 15 * time.Second
)

// Client talks to a single Pinecone index host.
type Client struct {
	host   string
	apiKey string
	client *http.Client
}

// NewClient creates a client for the given index host, e.g.
// "https://myindex-abc123.svc.us-east-1.pinecone.io".
func NewClient(host, apiKey string) *Client {
	return &Client{
		host:   strings.TrimRight(host, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: queryTimeout},
	}
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []queryMatch `json:"matches"`
}

type queryMatch struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Query fetches the TopK nearest neighbors for the given vector, metadata
// included, in provider similarity order. An empty match list is not an
// error. Transport or non-2xx failures surface as a RetrievalError.
func (c *Client) Query(ctx context.Context, vector []float32) ([]domain.RetrievalMatch, error) {
	var resp queryResponse
	err := c.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            TopK,
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, domain.NewRetrievalError("vector index query failed", err)
	}

	matches := make([]domain.RetrievalMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.RetrievalMatch{
			Score:    m.Score,
			Metadata: stringMetadata(m.Metadata),
		})
	}
	return matches, nil
}

// Vector is one embedded record to upsert.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors []Vector `json:"vectors"`
}

// Upsert writes vectors into the index.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := c.post(ctx, "/vectors/upsert", upsertRequest{Vectors: vectors}, nil); err != nil {
		return domain.NewRetrievalError("vector upsert failed", err)
	}
	return nil
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// Delete removes vectors by ID.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.post(ctx, "/vectors/delete", deleteRequest{IDs: ids}, nil); err != nil {
		return domain.NewRetrievalError("vector delete failed", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// stringMetadata keeps only string-valued metadata fields. The pipeline only
// reads title/text/url, all of which are written as strings.
func stringMetadata(raw map[string]interface{}) map[string]string {
	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			meta[k] = s
		}
	}
	return meta
}
