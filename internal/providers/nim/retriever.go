package nim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apiv1 "github.com/vgpu-advisor/vgpu-sizing-advisor/api/v1"
)

// Retriever queries the document retrieval service over HTTP. The
// service exposes POST /search taking {"query": ...} and returning
// {"chunks": [{"source": ..., "text": ...}]}.
type Retriever struct {
	endpoint string
	client   *http.Client
}

// NewRetriever creates a retriever for the given base endpoint. The
// HTTP client carries no timeout of its own; per-call deadlines come
// from the caller's context.
func NewRetriever(endpoint string) (*Retriever, error) {
	if endpoint == "" {
		return nil, errors.New("retrieval endpoint is required")
	}
	return &Retriever{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{},
	}, nil
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Chunks []apiv1.ContextChunk `json:"chunks"`
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]apiv1.ContextChunk, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("retrieval service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, fmt.Errorf("retrieval service returned invalid JSON: %w", err)
	}
	return search.Chunks, nil
}
