// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich calls the external analysis service for sentiment, impact,
// and embedding signals. Enrichment is best-effort: when the service is
// unreachable the pipeline continues with neutral defaults, so nothing in
// this package is allowed to fail an item.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/signal-engine/internal/httputil"
	"github.com/pdiddy/signal-engine/pkg/types"
)

// ErrUnavailable reports that the enrichment service could not produce a
// usable response. Callers fall back to neutral defaults.
var ErrUnavailable = errors.New("enrichment service unavailable")

// Enricher is the boundary to the analysis service.
type Enricher interface {
	// Enrich returns analysis signals for the item.
	Enrich(ctx context.Context, item *types.ContentItem) (*types.Enrichment, error)

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Disabled is an Enricher for running without an analysis service. Every
// call reports ErrUnavailable, which downstream turns into neutral defaults
// and a graph-only projection.
type Disabled struct{}

func (Disabled) Enrich(context.Context, *types.ContentItem) (*types.Enrichment, error) {
	return nil, ErrUnavailable
}

func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

// HTTPEnricher talks to the analysis service over HTTP.
type HTTPEnricher struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	log        io.Writer
}

// NewHTTP returns an enricher for the service at cfg.BaseURL. Progress and
// retry warnings go to w.
func NewHTTP(cfg types.EnrichmentConfig, w io.Writer) *HTTPEnricher {
	if w == nil {
		w = io.Discard
	}
	return &HTTPEnricher{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		log:        w,
	}
}

type analyzeRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

type analyzeResponse struct {
	Sentiment     float64  `json:"sentiment"`
	Trust         float64  `json:"trust"`
	Categories    []string `json:"categories"`
	MacroCategory string   `json:"macro_category"`
	Summary       string   `json:"summary"`
	UrgencyScore  float64  `json:"urgency_score"`
	MarketImpact  string   `json:"market_impact"`
	TimeRelevance float64  `json:"time_relevance"`
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Enrich implements Enricher.
func (e *HTTPEnricher) Enrich(ctx context.Context, item *types.ContentItem) (*types.Enrichment, error) {
	var out analyzeResponse
	err := e.post(ctx, "/v1/analyze", analyzeRequest{
		Title: item.Title,
		Body:  item.Body,
		Tags:  item.SubjectTags,
	}, &out)
	if err != nil {
		return nil, err
	}

	return &types.Enrichment{
		Sentiment:     out.Sentiment,
		Trust:         out.Trust,
		Categories:    out.Categories,
		MacroCategory: out.MacroCategory,
		Summary:       out.Summary,
		UrgencyScore:  out.UrgencyScore,
		MarketImpact:  out.MarketImpact,
		TimeRelevance: out.TimeRelevance,
	}, nil
}

// Embed implements Enricher.
func (e *HTTPEnricher) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	if err := e.post(ctx, "/v1/embed", embedRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrUnavailable)
	}
	return out.Embedding, nil
}

// post sends a JSON request and decodes the JSON response. Non-2xx statuses
// after retries are reported as ErrUnavailable.
func (e *HTTPEnricher) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, e.client, req, e.maxRetries, e.log)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrUnavailable, err)
	}
	return nil
}
