// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/synthesis-engine/internal/httputil"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// HTTPOracle calls a remote synthesis service over JSON/HTTP. The service
// exposes POST /synthesize and POST /deviation; rate-limited and transiently
// failing calls are retried at the transport level before the engine's own
// retry policy sees an error. Per prd005-orchestration R6.2.
type HTTPOracle struct {
	// Endpoint is the service base URL (e.g. "https://oracle.internal:8443").
	Endpoint string

	// APIKey is sent as the x-api-key header when non-empty.
	APIKey string

	// UserAgent is sent as the User-Agent header when non-empty.
	UserAgent string

	// Client is the HTTP client; nil means http.DefaultClient. Request
	// deadlines come from the caller's context, not from here.
	Client *http.Client

	// MaxRetries bounds transport-level retries (0 means the default).
	MaxRetries int
}

// synthesizeRequest is the request body for POST /synthesize.
type synthesizeRequest struct {
	Question  string                 `json:"question"`
	Domain    string                 `json:"domain"`
	Round     int                    `json:"round"`
	Knowledge string                 `json:"knowledge,omitempty"`
	Items     []types.LiteratureItem `json:"items"`
}

// deviationRequest is the request body for POST /deviation.
type deviationRequest struct {
	Content   string `json:"content"`
	Knowledge string `json:"knowledge"`
}

// Synthesize sends the batch and current knowledge to the service and
// returns its synthesis judgment.
func (o *HTTPOracle) Synthesize(ctx context.Context, batch []types.LiteratureItem, state types.SynthesisState, rc types.RunContext) (OracleResponse, error) {
	reqBody := synthesizeRequest{
		Question:  rc.Question,
		Domain:    rc.Domain,
		Round:     rc.Round,
		Knowledge: state.Knowledge,
		Items:     batch,
	}

	var resp OracleResponse
	if err := o.post(ctx, "/synthesize", reqBody, &resp); err != nil {
		return OracleResponse{}, err
	}
	return resp, nil
}

// EvaluateDeviation asks the service how far an item's content diverges
// from the accumulated knowledge.
func (o *HTTPOracle) EvaluateDeviation(ctx context.Context, item types.LiteratureItem, state types.SynthesisState) (types.DeviationReport, error) {
	reqBody := deviationRequest{
		Content:   item.Content,
		Knowledge: state.Knowledge,
	}

	var report types.DeviationReport
	if err := o.post(ctx, "/deviation", reqBody, &report); err != nil {
		return types.DeviationReport{}, err
	}
	return report, nil
}

// post sends one JSON request to the service and decodes the JSON response
// into out.
func (o *HTTPOracle) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimSuffix(o.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("x-api-key", o.APIKey)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return fmt.Errorf("calling oracle service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("oracle service returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrOracleMalformed, err)
	}
	return nil
}
