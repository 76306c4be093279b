package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"volna/types"
)

// NTV discovers through the site's category browsing API.
type NTV struct {
	BaseURL string
}

// NewNTV returns the production NTV adapter.
func NewNTV() *NTV {
	return &NTV{BaseURL: "https://www.ntv.ru"}
}

func (a *NTV) Site() string { return "ntv" }

func (a *NTV) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "ntv.ru" || host == "www.ntv.ru"
}

type ntvCategory struct {
	Items []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Link        string  `json:"link"`
		Preview     string  `json:"preview"`
		Date        string  `json:"date"`
		Duration    float64 `json:"duration"`
	} `json:"items"`
}

func (a *NTV) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	endpoint := fmt.Sprintf("%s/api/category/%s?limit=%d", a.BaseURL, url.PathEscape(category), max)

	var listing ntvCategory
	if err := fetchJSON(ctx, endpoint, &listing); err != nil {
		return nil, err
	}
	if listing.Items == nil {
		return nil, fmt.Errorf("%w: ntv category listing has no items field", types.ErrParse)
	}

	seen := make(map[string]struct{}, len(listing.Items))
	items := make([]types.DiscoveredItem, 0, min(len(listing.Items), max))
	for _, it := range listing.Items {
		if len(items) == max {
			break
		}
		itemURL := it.Link
		if itemURL == "" && it.ID != 0 {
			itemURL = fmt.Sprintf("https://www.ntv.ru/video/%d/", it.ID)
		}
		if itemURL == "" {
			continue
		}
		if _, dup := seen[itemURL]; dup {
			continue
		}
		seen[itemURL] = struct{}{}

		items = append(items, types.DiscoveredItem{
			URL:          itemURL,
			Title:        it.Title,
			Description:  it.Description,
			PublishedAt:  parseTimeAny(it.Date),
			ThumbnailURL: it.Preview,
			SourceKey:    types.SourceKey("ntv:" + category),
			ContentType:  types.ContentTypeVideo,
			DurationSec:  it.Duration,
		})
	}
	return items, nil
}

type ntvVideo struct {
	Title    string  `json:"title"`
	HLS      string  `json:"hls"`
	MP4      string  `json:"mp4"`
	Allowed  *bool   `json:"allowed"`
	Duration float64 `json:"duration"`
}

func (a *NTV) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	id := lastPathSegment(itemURL)
	if id == "" || strings.Trim(id, "0123456789") != "" {
		return nil, fmt.Errorf("%w: no video id in %q", types.ErrNotFound, itemURL)
	}

	var v ntvVideo
	if err := fetchJSON(ctx, a.BaseURL+"/api/video/"+id, &v); err != nil {
		return nil, err
	}

	meta := &types.ScrapedMetadata{
		Title:       v.Title,
		Restricted:  v.Allowed != nil && !*v.Allowed,
		DurationSec: v.Duration,
	}
	if !meta.Restricted {
		switch {
		case v.HLS != "":
			meta.M3U8URL = v.HLS
		case v.MP4 != "":
			meta.MP4URL = v.MP4
		default:
			return nil, fmt.Errorf("%w: ntv video %s carries no stream", types.ErrParse, id)
		}
	}
	return meta, nil
}
