package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"volna/types"
)

// Pervyj covers Pervyj Kanal, whose video is indexed through a Rutube
// channel. Discovery and stream resolution go through the Rutube API, but
// items always carry the origin-site URL: that URL is the canonical
// identity and cache key, and ExtractMetadata maps it back to the Rutube
// video internally.
type Pervyj struct {
	// BaseURL is the origin site, used for user-facing item URLs only.
	BaseURL string

	// ProxyURL is the Rutube API host.
	ProxyURL string

	// Channel is the Rutube channel id holding the uploads.
	Channel string
}

// NewPervyj returns the production adapter.
func NewPervyj() *Pervyj {
	return &Pervyj{
		BaseURL:  "https://www.1tv.ru",
		ProxyURL: "https://rutube.ru",
		Channel:  "23460655",
	}
}

func (a *Pervyj) Site() string { return "1tv" }

func (a *Pervyj) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "1tv.ru" || host == "www.1tv.ru"
}

type rutubeChannel struct {
	Results []struct {
		ID           string  `json:"id"`
		Title        string  `json:"title"`
		Description  string  `json:"description"`
		ThumbnailURL string  `json:"thumbnail_url"`
		CreatedTS    string  `json:"created_ts"`
		Duration     float64 `json:"duration"`
	} `json:"results"`
}

func (a *Pervyj) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	endpoint := fmt.Sprintf("%s/api/video/person/%s/?page=1", a.ProxyURL, url.PathEscape(a.Channel))

	var channel rutubeChannel
	if err := fetchJSON(ctx, endpoint, &channel); err != nil {
		return nil, err
	}
	if channel.Results == nil {
		return nil, fmt.Errorf("%w: rutube channel listing has no results field", types.ErrParse)
	}

	seen := make(map[string]struct{}, len(channel.Results))
	items := make([]types.DiscoveredItem, 0, min(len(channel.Results), max))
	for _, it := range channel.Results {
		if len(items) == max {
			break
		}
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}

		items = append(items, types.DiscoveredItem{
			// Origin-site URL for user-facing identity; the proxy is only
			// the resolution path.
			URL:          a.BaseURL + "/video/" + it.ID,
			Title:        it.Title,
			Description:  it.Description,
			PublishedAt:  parseTimeAny(it.CreatedTS),
			ThumbnailURL: it.ThumbnailURL,
			SourceKey:    types.SourceKey("1tv:" + category),
			ContentType:  types.ContentTypeVideo,
			DurationSec:  it.Duration,
		})
	}
	return items, nil
}

type rutubePlayOptions struct {
	Title         string `json:"title"`
	VideoBalancer struct {
		M3U8 string `json:"m3u8"`
	} `json:"video_balancer"`
	Detail string `json:"detail"`
}

func (a *Pervyj) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	id := lastPathSegment(itemURL)
	if id == "" {
		return nil, fmt.Errorf("%w: no video id in %q", types.ErrNotFound, itemURL)
	}

	endpoint := fmt.Sprintf("%s/api/play/options/%s/", a.ProxyURL, url.PathEscape(id))
	body, status, err := fetchRaw(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// The play-options endpoint answers 403/451 for region-locked videos.
	// That is a positive restriction marker, not a failure.
	if status == http.StatusForbidden || status == http.StatusUnavailableForLegalReasons {
		return &types.ScrapedMetadata{Restricted: true}, nil
	}
	if status == http.StatusNotFound || status == http.StatusGone {
		return nil, fmt.Errorf("%w: rutube video %q", types.ErrNotFound, id)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: rutube play options returned %d", types.ErrSourceUnavailable, status)
	}

	var opts rutubePlayOptions
	if err := json.Unmarshal(body, &opts); err != nil {
		return nil, fmt.Errorf("%w: rutube play options: %v", types.ErrParse, err)
	}
	if opts.VideoBalancer.M3U8 == "" {
		if opts.Detail != "" {
			// A detail message with no balancer is the soft form of the
			// same region lock.
			return &types.ScrapedMetadata{Title: opts.Title, Restricted: true}, nil
		}
		return nil, fmt.Errorf("%w: rutube play options carry no m3u8", types.ErrParse)
	}

	return &types.ScrapedMetadata{
		Title:   opts.Title,
		M3U8URL: opts.VideoBalancer.M3U8,
	}, nil
}
