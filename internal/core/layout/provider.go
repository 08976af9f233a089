package layout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veridian-labs/docstream/internal/core"
)

// HTTPProvider calls a hosted layout-analysis API over JSON. The request ships
// the PDF bytes base64-encoded together with the analysis options; the response
// is the vendor's element list, passed through untouched for the adapter to
// normalize.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type analyzeRequest struct {
	DocumentID string             `json:"document_id"`
	Data       string             `json:"data"`
	Options    core.LayoutOptions `json:"options"`
}

type analyzeResponse struct {
	Elements []core.RawLayoutElement `json:"elements"`
}

// NewHTTPProvider builds a provider for the given endpoint. Returns nil when no
// endpoint is configured, which disables layout analysis entirely.
func NewHTTPProvider(endpoint, apiKey string) *HTTPProvider {
	if endpoint == "" {
		return nil
	}
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// AnalyzeLayout posts the document to the layout service.
func (p *HTTPProvider) AnalyzeLayout(ctx context.Context, documentID string, data []byte, opts core.LayoutOptions) ([]core.RawLayoutElement, error) {
	payload, err := json.Marshal(analyzeRequest{
		DocumentID: documentID,
		Data:       base64.StdEncoding.EncodeToString(data),
		Options:    opts,
	})
	if err != nil {
		return nil, fmt.Errorf("encode layout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build layout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("layout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("layout service returned %d: %s", resp.StatusCode, body)
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode layout response: %w", err)
	}
	return out.Elements, nil
}

var _ core.LayoutProvider = (*HTTPProvider)(nil)
