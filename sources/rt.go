package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"volna/types"
)

// RT discovers through the site's public JSON listing API and resolves
// streams through its per-video endpoint.
type RT struct {
	// BaseURL is overridable for tests.
	BaseURL string
}

// NewRT returns the production RT adapter.
func NewRT() *RT {
	return &RT{BaseURL: "https://russian.rt.com"}
}

func (a *RT) Site() string { return "rt" }

func (a *RT) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "russian.rt.com" || host == "rt.com" || strings.HasSuffix(host, ".rt.com")
}

type rtListing struct {
	Items []struct {
		Title       string  `json:"title"`
		Summary     string  `json:"summary"`
		Href        string  `json:"href"`
		Preview     string  `json:"preview"`
		PublishedAt string  `json:"published_at"`
		Duration    float64 `json:"duration"`
	} `json:"items"`
}

func (a *RT) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	endpoint := fmt.Sprintf("%s/api/listing/%s?limit=%d", a.BaseURL, url.PathEscape(category), max)

	var listing rtListing
	if err := fetchJSON(ctx, endpoint, &listing); err != nil {
		return nil, err
	}
	if listing.Items == nil {
		return nil, fmt.Errorf("%w: rt listing has no items field", types.ErrParse)
	}

	seen := make(map[string]struct{}, len(listing.Items))
	items := make([]types.DiscoveredItem, 0, min(len(listing.Items), max))
	for _, it := range listing.Items {
		if len(items) == max {
			break
		}
		itemURL := it.Href
		if strings.HasPrefix(itemURL, "/") {
			itemURL = "https://russian.rt.com" + itemURL
		}
		if _, dup := seen[itemURL]; dup || itemURL == "" {
			continue
		}
		seen[itemURL] = struct{}{}

		items = append(items, types.DiscoveredItem{
			URL:          itemURL,
			Title:        it.Title,
			Description:  it.Summary,
			PublishedAt:  parseTimeAny(it.PublishedAt),
			ThumbnailURL: it.Preview,
			SourceKey:    types.SourceKey("rt:" + category),
			ContentType:  types.ContentTypeVideo,
			DurationSec:  it.Duration,
		})
	}
	return items, nil
}

type rtVideo struct {
	Title      string  `json:"title"`
	HLS        string  `json:"hls"`
	MP4        string  `json:"mp4"`
	GeoBlocked bool    `json:"geo_blocked"`
	Duration   float64 `json:"duration"`
}

func (a *RT) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	slug := lastPathSegment(itemURL)
	if slug == "" {
		return nil, fmt.Errorf("%w: no video slug in %q", types.ErrNotFound, itemURL)
	}

	var v rtVideo
	if err := fetchJSON(ctx, a.BaseURL+"/api/video/"+url.PathEscape(slug), &v); err != nil {
		return nil, err
	}

	meta := &types.ScrapedMetadata{
		Title:       v.Title,
		Restricted:  v.GeoBlocked,
		DurationSec: v.Duration,
	}
	if !meta.Restricted {
		// Prefer HLS; the mp4 field is a fallback mirror of the same media.
		switch {
		case v.HLS != "":
			meta.M3U8URL = v.HLS
		case v.MP4 != "":
			meta.MP4URL = v.MP4
		default:
			return nil, fmt.Errorf("%w: rt video %q carries no stream", types.ErrParse, slug)
		}
	}
	return meta, nil
}

// lastPathSegment extracts the final non-empty path element of a URL.
func lastPathSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
