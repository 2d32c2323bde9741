package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	n := New()
	n.Now = func() time.Time { return fixedNow }
	return n
}

func TestNormalizeNewsAPI(t *testing.T) {
	raw := json.RawMessage(`{
		"url": "https://example.com/articles/btc-rally",
		"title": "Bitcoin rallies past resistance",
		"content": "Bitcoin climbed on Tuesday as traders digested the latest filing news.",
		"publishedAt": "2026-03-01T09:30:00Z",
		"tags": ["btc"]
	}`)

	item, err := newTestNormalizer().Normalize("newsapi", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if item.ExternalKey != "https://example.com/articles/btc-rally" {
		t.Errorf("ExternalKey = %q", item.ExternalKey)
	}
	if item.ID == "" || len(item.ID) != 16 {
		t.Errorf("ID = %q, want 16-char slug", item.ID)
	}
	if item.SourceID != "newsapi" {
		t.Errorf("SourceID = %q", item.SourceID)
	}
	if item.DateImputed {
		t.Error("DateImputed should be false for a parsable date")
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", item.PublishedAt, want)
	}
	if item.PublishedAt.Location() != time.UTC {
		t.Error("PublishedAt should be normalized to UTC")
	}
	if item.ContentHash == "" {
		t.Error("ContentHash should be populated")
	}
}

func TestNormalizeSearchFeed(t *testing.T) {
	raw := json.RawMessage(`{
		"link": "https://search.example.com/r/123",
		"headline": "ETH staking yields drop",
		"snippet": "Yields on staked ether fell this week...",
		"timestamp": "2026-02-28 18:00:00",
		"topics": ["eth"]
	}`)

	item, err := newTestNormalizer().Normalize("searchfeed", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if item.Title != "ETH staking yields drop" {
		t.Errorf("Title = %q", item.Title)
	}
	if len(item.SubjectTags) != 1 || item.SubjectTags[0] != "eth" {
		t.Errorf("SubjectTags = %v", item.SubjectTags)
	}
}

func TestNormalizeMarketSnap(t *testing.T) {
	raw := json.RawMessage(`{
		"symbol": "BTC",
		"price": 64250.10,
		"change_pct": -2.4,
		"as_of": "2026-03-01T11:00:00Z",
		"summary": "Bitcoin slid in morning trading on profit taking."
	}`)

	item, err := newTestNormalizer().Normalize("marketsnap", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if item.ExternalKey != "marketsnap:btc:2026-03-01T11:00:00Z" {
		t.Errorf("ExternalKey = %q", item.ExternalKey)
	}
	if item.SubjectTags[0] != "btc" {
		t.Errorf("SubjectTags = %v", item.SubjectTags)
	}
}

func TestNormalizeMissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing key", `{"title": "No URL here", "content": "body"}`},
		{"missing title", `{"url": "https://example.com/x", "content": "body"}`},
		{"invalid json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestNormalizer().Normalize("newsapi", json.RawMessage(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestNormalizeImputesUnparsableDate(t *testing.T) {
	raw := json.RawMessage(`{
		"url": "https://example.com/no-date",
		"title": "Undated item",
		"content": "body text",
		"publishedAt": "sometime last week"
	}`)

	item, err := newTestNormalizer().Normalize("newsapi", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !item.DateImputed {
		t.Error("DateImputed should be set")
	}
	if !item.PublishedAt.Equal(fixedNow) {
		t.Errorf("PublishedAt = %v, want imputed %v", item.PublishedAt, fixedNow)
	}
}

func TestNormalizeUnknownSourceUsesGenericAdapter(t *testing.T) {
	raw := json.RawMessage(`{
		"external_key": "custom-1",
		"title": "Custom source item",
		"body": "payload in canonical shape",
		"published_at": "2026-02-20"
	}`)

	item, err := newTestNormalizer().Normalize("somefeed", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if item.SourceID != "somefeed" {
		t.Errorf("SourceID = %q", item.SourceID)
	}
	if item.DateImputed {
		t.Error("date should parse with the 2006-01-02 layout")
	}
}

func TestRegisterCustomAdapter(t *testing.T) {
	n := newTestNormalizer()
	n.Register("pricewire", func(raw json.RawMessage) (draft, error) {
		return draft{ExternalKey: "pw-1", Title: "custom", Body: "b"}, nil
	})

	item, err := n.Normalize("pricewire", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if item.ExternalKey != "pw-1" {
		t.Errorf("ExternalKey = %q", item.ExternalKey)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2026-03-01T09:30:00Z", true},
		{"2026-03-01T09:30:00+02:00", true},
		{"Mon, 02 Jan 2026 15:04:05 -0700", true},
		{"2026-03-01 09:30:00", true},
		{"2026-03-01", true},
		{"1767225600", true},
		{"", false},
		{"yesterday", false},
		{"-42", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := ParseDate(tt.input)
			if ok != tt.ok {
				t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}

func TestContentHashStability(t *testing.T) {
	a := ContentHash("Bitcoin  climbed on Tuesday.")
	b := ContentHash("bitcoin climbed on tuesday.")
	if a != b {
		t.Error("hash should be case- and whitespace-insensitive")
	}

	c := ContentHash("A completely different body.")
	if a == c {
		t.Error("different bodies should hash differently")
	}
}

func TestContentHashUsesBoundedPrefix(t *testing.T) {
	prefix := make([]byte, 600)
	for i := range prefix {
		prefix[i] = 'a'
	}
	base := string(prefix)

	if ContentHash(base+" ending one") != ContentHash(base+" ending two") {
		t.Error("bodies sharing the first 512 normalized chars should collide by design")
	}
}
