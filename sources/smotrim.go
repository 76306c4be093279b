package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"volna/types"
)

// Smotrim discovers through the platform's schedule API: entries for a
// trailing time window are mapped to video items.
type Smotrim struct {
	BaseURL string

	// Window is the schedule lookback; defaults to one day.
	Window time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewSmotrim returns the production Smotrim adapter.
func NewSmotrim() *Smotrim {
	return &Smotrim{
		BaseURL: "https://api.smotrim.ru",
		Window:  24 * time.Hour,
		now:     time.Now,
	}
}

func (a *Smotrim) Site() string { return "smotrim" }

func (a *Smotrim) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "smotrim.ru" || host == "www.smotrim.ru"
}

type smotrimSchedule struct {
	Data []struct {
		ID       int64   `json:"id"`
		Title    string  `json:"title"`
		Anons    string  `json:"anons"`
		Preview  string  `json:"preview"`
		Date     string  `json:"date"`
		Duration float64 `json:"duration"`
	} `json:"data"`
}

func (a *Smotrim) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	clock := a.now
	if clock == nil {
		clock = time.Now
	}
	to := clock().UTC()
	from := to.Add(-a.Window)
	endpoint := fmt.Sprintf("%s/api/v1/schedule?category=%s&from=%d&to=%d",
		a.BaseURL, url.QueryEscape(category), from.Unix(), to.Unix())

	var sched smotrimSchedule
	if err := fetchJSON(ctx, endpoint, &sched); err != nil {
		return nil, err
	}
	if sched.Data == nil {
		return nil, fmt.Errorf("%w: smotrim schedule has no data field", types.ErrParse)
	}

	seen := make(map[int64]struct{}, len(sched.Data))
	items := make([]types.DiscoveredItem, 0, len(sched.Data))
	for _, entry := range sched.Data {
		if entry.ID == 0 {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}

		items = append(items, types.DiscoveredItem{
			URL:          fmt.Sprintf("https://smotrim.ru/video/%d", entry.ID),
			Title:        entry.Title,
			Description:  entry.Anons,
			PublishedAt:  parseTimeAny(entry.Date),
			ThumbnailURL: entry.Preview,
			SourceKey:    types.SourceKey("smotrim:" + category),
			ContentType:  types.ContentTypeVideo,
			DurationSec:  entry.Duration,
		})
	}

	// The schedule runs oldest first; callers expect most recent first.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

type smotrimVideo struct {
	Data struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		Locked   bool    `json:"locked"`
		Sources  struct {
			M3U8 string `json:"m3u8"`
			MP4  string `json:"mp4"`
		} `json:"sources"`
	} `json:"data"`
}

func (a *Smotrim) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	id := lastPathSegment(itemURL)
	if id == "" || strings.Trim(id, "0123456789") != "" {
		return nil, fmt.Errorf("%w: no video id in %q", types.ErrNotFound, itemURL)
	}

	var v smotrimVideo
	if err := fetchJSON(ctx, a.BaseURL+"/api/v1/video/"+id, &v); err != nil {
		return nil, err
	}

	meta := &types.ScrapedMetadata{
		Title:       v.Data.Title,
		Restricted:  v.Data.Locked,
		DurationSec: v.Data.Duration,
	}
	if !meta.Restricted {
		switch {
		case v.Data.Sources.M3U8 != "":
			meta.M3U8URL = v.Data.Sources.M3U8
		case v.Data.Sources.MP4 != "":
			meta.MP4URL = v.Data.Sources.MP4
		default:
			// The API omits sources entirely for region-locked entries
			// that predate the locked flag.
			meta.Restricted = true
		}
	}
	return meta, nil
}
