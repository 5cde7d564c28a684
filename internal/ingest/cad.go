package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// parseTimeout bounds one CAD parse round trip. Geometry extraction on
// large assemblies is slow, so this is generous.
const parseTimeout = 5 * time.Minute

// CADPart is one part extracted from a CAD model.
type CADPart struct {
	PartID     string  `json:"part_id"`
	Volume     float64 `json:"volume"`
	Properties string  `json:"properties_text"`
}

// CADClient talks to the external CAD parser service, which owns the
// geometry kernel.
type CADClient struct {
	client  *http.Client
	baseURL string
}

// NewCADClient creates a CADClient for the given service base URL.
func NewCADClient(baseURL string) *CADClient {
	return &CADClient{
		client:  &http.Client{Timeout: parseTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Parse uploads a CAD file and returns its extracted parts.
func (c *CADClient) Parse(ctx context.Context, path string) ([]CADPart, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no CAD parser configured for %s", ErrParseFailure, path)
	}

	body, contentType, err := multipartFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", body)
	if err != nil {
		return nil, fmt.Errorf("building CAD parse request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: CAD parse request for %s: %v", ErrParseFailure, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: CAD parser returned %d for %s: %s",
			ErrParseFailure, resp.StatusCode, path, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Filename string    `json:"filename"`
		Parts    []CADPart `json:"parts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding CAD parse response for %s: %v", ErrParseFailure, path, err)
	}
	if len(out.Parts) == 0 {
		return nil, fmt.Errorf("%w: CAD parser found no parts in %s", ErrParseFailure, path)
	}
	for i, p := range out.Parts {
		if p.PartID == "" {
			return nil, fmt.Errorf("%w: part %d in %s has no part_id", ErrParseFailure, i, path)
		}
	}
	return out.Parts, nil
}
