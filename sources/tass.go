package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"volna/types"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

// Tass has no content API; discovery parses the syndication feed and
// metadata extraction scrapes the item page for the player source.
type Tass struct {
	BaseURL string

	parser *gofeed.Parser
}

// NewTass returns the production TASS adapter.
func NewTass() *Tass {
	return &Tass{
		BaseURL: "https://tass.ru",
		parser:  gofeed.NewParser(),
	}
}

func (a *Tass) Site() string { return "tass" }

func (a *Tass) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "tass.ru" || host == "www.tass.ru" || strings.HasSuffix(host, ".tass.ru")
}

func (a *Tass) feedURL(category string) string {
	if category == "news" {
		return a.BaseURL + "/rss/v2.xml"
	}
	return a.BaseURL + "/rss/" + url.PathEscape(category) + ".xml"
}

func (a *Tass) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	body, err := fetch(ctx, a.feedURL(category))
	if err != nil {
		return nil, err
	}

	parser := a.parser
	if parser == nil {
		parser = gofeed.NewParser()
	}
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: tass feed: %v", types.ErrParse, err)
	}

	seen := make(map[string]struct{}, len(feed.Items))
	items := make([]types.DiscoveredItem, 0, min(len(feed.Items), max))
	for _, it := range feed.Items {
		if len(items) == max {
			break
		}
		if it.Link == "" {
			continue
		}
		if _, dup := seen[it.Link]; dup {
			continue
		}
		seen[it.Link] = struct{}{}

		item := types.DiscoveredItem{
			URL:         it.Link,
			Title:       it.Title,
			Description: it.Description,
			SourceKey:   types.SourceKey("tass:" + category),
			ContentType: types.ContentTypeVideo,
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = *it.UpdatedParsed
		}
		if it.Image != nil {
			item.ThumbnailURL = it.Image.URL
		} else {
			for _, enc := range it.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					item.ThumbnailURL = enc.URL
					break
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Geo-restriction banners the page scraper treats as positive markers.
var tassRestrictionMarkers = []string{
	"недоступно в вашем регионе",
	"видео недоступно",
	"not available in your region",
}

func (a *Tass) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	body, err := fetch(ctx, itemURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: tass page %s: %v", types.ErrParse, itemURL, err)
	}

	meta := &types.ScrapedMetadata{Title: pageTitle(doc)}

	pageText := strings.ToLower(doc.Text())
	for _, marker := range tassRestrictionMarkers {
		if strings.Contains(pageText, marker) {
			meta.Restricted = true
			break
		}
	}

	if !meta.Restricted {
		streamURL := findStreamURL(doc)
		if streamURL == "" {
			// No player and no restriction banner: the page either moved
			// or is not a video item.
			return nil, fmt.Errorf("%w: no player found on %s", types.ErrNotFound, itemURL)
		}
		if strings.Contains(streamURL, ".m3u8") {
			meta.M3U8URL = streamURL
		} else {
			meta.MP4URL = streamURL
		}
		meta.DurationSec = pageDuration(doc)
	}

	// Body text feeds the classifier; readability failures are non-fatal
	// since the title alone still classifies.
	if parsed, err := url.Parse(itemURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
			meta.Text = article.TextContent
			if meta.Title == "" {
				meta.Title = article.Title
			}
		}
	}
	return meta, nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return og
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func pageDuration(doc *goquery.Document) float64 {
	if raw, ok := doc.Find(`meta[property="og:video:duration"]`).Attr("content"); ok {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			return secs
		}
	}
	return 0
}

// findStreamURL walks the player markup variants the site has used.
func findStreamURL(doc *goquery.Document) string {
	if src, ok := doc.Find("video source[src]").First().Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := doc.Find("video[src]").First().Attr("src"); ok && src != "" {
		return src
	}
	for _, prop := range []string{"og:video:secure_url", "og:video:url", "og:video"} {
		if src, ok := doc.Find(`meta[property="` + prop + `"]`).Attr("content"); ok && src != "" {
			return src
		}
	}
	if src, ok := doc.Find("[data-video-url]").First().Attr("data-video-url"); ok && src != "" {
		return src
	}
	return ""
}
