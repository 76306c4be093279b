package types

import (
	"fmt"
	"strings"
	"time"
)

// SourceKey identifies one adapter feed as "site:category", e.g. "rt:news".
// The site part selects the adapter in the registry, the category part is
// passed through to it. Keys are immutable and double as cache key components.
type SourceKey string

// Site returns the adapter part of the key.
func (k SourceKey) Site() string {
	site, _, _ := strings.Cut(string(k), ":")
	return site
}

// Category returns the feed part of the key, or "news" when omitted.
func (k SourceKey) Category() string {
	_, cat, ok := strings.Cut(string(k), ":")
	if !ok || cat == "" {
		return "news"
	}
	return cat
}

// Valid reports whether the key has a non-empty site part.
func (k SourceKey) Valid() bool {
	return k.Site() != ""
}

// ParseSourceKeys splits a comma-separated source list into keys.
func ParseSourceKeys(csv string) ([]SourceKey, error) {
	var keys []SourceKey
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := SourceKey(part)
		if !key.Valid() {
			return nil, fmt.Errorf("invalid source key %q", part)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no source keys given")
	}
	return keys, nil
}

// ContentTypeVideo is the only content type produced by the current adapters.
const ContentTypeVideo = "video"

// DiscoveredItem is one video-bearing news item as returned by discovery.
// Items are built by an adapter, enriched by the classifier, and never
// mutated afterwards.
type DiscoveredItem struct {
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	SourceKey    SourceKey `json:"source_key"`
	ContentType  string    `json:"content_type"`
	DurationSec  float64   `json:"duration_sec,omitempty"`
	Category     string    `json:"category,omitempty"`
	Level        string    `json:"pedagogical_level,omitempty"`
}

// ScrapedMetadata is the resolved stream descriptor for one item.
// At most one of M3U8URL/MP4URL is set; when Restricted is true neither is.
// Category, Level and ILRScore are populated together or not at all.
type ScrapedMetadata struct {
	Title       string  `json:"title"`
	M3U8URL     string  `json:"m3u8_url,omitempty"`
	MP4URL      string  `json:"mp4_url,omitempty"`
	Restricted  bool    `json:"restricted"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Category    string  `json:"category,omitempty"`
	Level       string  `json:"pedagogical_level,omitempty"`
	ILRScore    float64 `json:"ilr_score,omitempty"`

	// Text carries page body text for classification. In-process only,
	// never serialized or cached.
	Text string `json:"-"`
}

// HasStream reports whether exactly one stream descriptor is set.
func (m *ScrapedMetadata) HasStream() bool {
	return (m.M3U8URL != "") != (m.MP4URL != "")
}

// StreamRedirect is returned by the audio endpoint when direct demuxing is
// not performed and the caller should download the muxed file itself.
type StreamRedirect struct {
	StreamType string `json:"streamType"`
	URL        string `json:"url"`
}
