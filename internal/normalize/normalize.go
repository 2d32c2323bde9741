// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts heterogeneous source payloads into the canonical
// ContentItem shape. Each source has an adapter — a pure function from the
// provider's payload to a ContentItem — keyed by source ID; new sources add
// an adapter, never change the core.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// ErrMalformed marks payloads missing required fields (external key or
// title). Such items are discarded without retry.
var ErrMalformed = errors.New("malformed input")

// hashPrefixChars bounds the content-hash input to the first N characters of
// the normalized body. Near-duplicates with divergent openings are accepted
// as false negatives in exchange for O(1) comparison.
const hashPrefixChars = 512

// Adapter converts one raw provider payload into a draft item. The returned
// item needs ExternalKey and Title set; the normalizer fills ID, SourceID,
// ContentHash, and the UTC-normalized PublishedAt.
type Adapter func(raw json.RawMessage) (draft, error)

// draft is the intermediate shape adapters produce before canonicalization.
type draft struct {
	ExternalKey string
	Title       string
	Body        string
	SubjectTags []string
	PublishedAt string
}

// Normalizer holds the adapter map and the clock used for date imputation.
type Normalizer struct {
	adapters map[string]Adapter

	// Now is the clock used when a publication date cannot be parsed.
	// Overridable in tests.
	Now func() time.Time
}

// New returns a Normalizer with the built-in adapters registered: "newsapi"
// (news articles), "searchfeed" (search results), "marketsnap" (market
// snapshots), and a generic fallback for canonical payloads.
func New() *Normalizer {
	n := &Normalizer{
		adapters: make(map[string]Adapter),
		Now:      time.Now,
	}
	n.Register("newsapi", newsAPIAdapter)
	n.Register("searchfeed", searchFeedAdapter)
	n.Register("marketsnap", marketSnapAdapter)
	return n
}

// Register adds or replaces the adapter for sourceID.
func (n *Normalizer) Register(sourceID string, a Adapter) {
	n.adapters[strings.ToLower(sourceID)] = a
}

// Normalize converts one raw payload from sourceID into a ContentItem.
// Sources without a registered adapter go through the generic adapter, which
// expects the canonical field names. Returns an error wrapping ErrMalformed
// when required fields are absent.
func (n *Normalizer) Normalize(sourceID string, raw json.RawMessage) (*types.ContentItem, error) {
	adapter, ok := n.adapters[strings.ToLower(sourceID)]
	if !ok {
		adapter = genericAdapter
	}

	d, err := adapter(raw)
	if err != nil {
		return nil, err
	}
	if d.ExternalKey == "" {
		return nil, fmt.Errorf("%w: missing external key", ErrMalformed)
	}
	if d.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrMalformed)
	}

	item := &types.ContentItem{
		ID:          Slug(d.ExternalKey),
		SourceID:    sourceID,
		ExternalKey: d.ExternalKey,
		SubjectTags: d.SubjectTags,
		Title:       strings.TrimSpace(d.Title),
		Body:        strings.TrimSpace(d.Body),
	}

	if t, ok := ParseDate(d.PublishedAt); ok {
		item.PublishedAt = t.UTC()
	} else {
		item.PublishedAt = n.Now().UTC()
		item.DateImputed = true
	}

	item.ContentHash = ContentHash(item.Body)
	return item, nil
}

// Slug derives the stable item identifier from the external key.
func Slug(externalKey string) string {
	sum := sha256.Sum256([]byte(externalKey))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash returns the near-duplicate dedup key: a hash over the first
// hashPrefixChars characters of the lowercased, whitespace-collapsed body.
func ContentHash(body string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(body)), " ")
	if len(norm) > hashPrefixChars {
		norm = norm[:hashPrefixChars]
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// dateLayouts lists the accepted publication date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a publication date in any accepted layout, including Unix
// seconds. The second return value is false when the value is unparsable and
// the caller should impute the current time.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	// Unix seconds.
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0), true
	}

	return time.Time{}, false
}

// --- built-in adapters ---

// newsAPIAdapter handles news-article payloads: url, title, content or
// description, publishedAt, source.name, optional tags.
func newsAPIAdapter(raw json.RawMessage) (draft, error) {
	var payload struct {
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		Content     string   `json:"content"`
		Description string   `json:"description"`
		PublishedAt string   `json:"publishedAt"`
		Tags        []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return draft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	body := payload.Content
	if body == "" {
		body = payload.Description
	}
	return draft{
		ExternalKey: payload.URL,
		Title:       payload.Title,
		Body:        body,
		SubjectTags: payload.Tags,
		PublishedAt: payload.PublishedAt,
	}, nil
}

// searchFeedAdapter handles search-result payloads: link, headline, snippet,
// timestamp, topics.
func searchFeedAdapter(raw json.RawMessage) (draft, error) {
	var payload struct {
		Link      string   `json:"link"`
		Headline  string   `json:"headline"`
		Snippet   string   `json:"snippet"`
		Timestamp string   `json:"timestamp"`
		Topics    []string `json:"topics"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return draft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return draft{
		ExternalKey: payload.Link,
		Title:       payload.Headline,
		Body:        payload.Snippet,
		SubjectTags: payload.Topics,
		PublishedAt: payload.Timestamp,
	}, nil
}

// marketSnapAdapter handles market-snapshot payloads: symbol, price, change,
// as_of, summary. The external key combines symbol and snapshot time so
// successive snapshots of the same symbol remain distinct.
func marketSnapAdapter(raw json.RawMessage) (draft, error) {
	var payload struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		ChangePct float64 `json:"change_pct"`
		AsOf      string  `json:"as_of"`
		Summary   string  `json:"summary"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return draft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Symbol == "" {
		return draft{}, fmt.Errorf("%w: missing symbol", ErrMalformed)
	}

	title := fmt.Sprintf("%s market snapshot: %.2f (%+.2f%%)",
		strings.ToUpper(payload.Symbol), payload.Price, payload.ChangePct)

	return draft{
		ExternalKey: fmt.Sprintf("marketsnap:%s:%s", strings.ToLower(payload.Symbol), payload.AsOf),
		Title:       title,
		Body:        payload.Summary,
		SubjectTags: []string{strings.ToLower(payload.Symbol)},
		PublishedAt: payload.AsOf,
	}, nil
}

// genericAdapter expects the canonical field names and serves sources without
// a dedicated adapter.
func genericAdapter(raw json.RawMessage) (draft, error) {
	var payload struct {
		ExternalKey string   `json:"external_key"`
		Title       string   `json:"title"`
		Body        string   `json:"body"`
		SubjectTags []string `json:"subject_tags"`
		PublishedAt string   `json:"published_at"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return draft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return draft{
		ExternalKey: payload.ExternalKey,
		Title:       payload.Title,
		Body:        payload.Body,
		SubjectTags: payload.SubjectTags,
		PublishedAt: payload.PublishedAt,
	}, nil
}
