package pipeline

import (
	"context"
	"fmt"

	"volna/audio"
	"volna/cache"
	"volna/classify"
	"volna/config"
	"volna/discovery"
	"volna/sources"
	"volna/types"
)

// Pipeline is the facade the HTTP layer talks to. It owns no policy of its
// own beyond parameter clamping; discovery, scraping, classification and
// extraction each live in their package and are composed here.
type Pipeline struct {
	registry    *sources.Registry
	cache       *cache.Cache
	classifier  *classify.Classifier
	coordinator *discovery.Coordinator
	extractor   *audio.Extractor
}

func New(registry *sources.Registry, c *cache.Cache, classifier *classify.Classifier, coordinator *discovery.Coordinator, extractor *audio.Extractor) *Pipeline {
	return &Pipeline{
		registry:    registry,
		cache:       c,
		classifier:  classifier,
		coordinator: coordinator,
		extractor:   extractor,
	}
}

// Discover fans out across the requested sources and merges the results.
// max is clamped to [1, config.MaxItemsCap], defaulting when unset.
func (p *Pipeline) Discover(ctx context.Context, keys []types.SourceKey, max int, bypass bool) discovery.Batch {
	if max <= 0 {
		max = config.DefaultMaxItems
	}
	if max > config.MaxItemsCap {
		max = config.MaxItemsCap
	}
	return p.coordinator.Discover(ctx, keys, max, bypass)
}

// Scrape resolves an item URL to its owning adapter and returns stream
// metadata enriched with classification. Results are cached per URL; the
// page text used by the classifier never leaves the fetch.
func (p *Pipeline) Scrape(ctx context.Context, itemURL string, bypass bool) (*types.ScrapedMetadata, error) {
	adapter, err := p.registry.ResolveURL(itemURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.SourceTimeout)
	defer cancel()

	cacheKey := cache.Key("scrape", itemURL)
	meta, err := cache.DoJSON(ctx, p.cache, cacheKey, config.ScrapeTTL, bypass, func(ctx context.Context) (types.ScrapedMetadata, error) {
		scraped, err := adapter.ExtractMetadata(ctx, itemURL)
		if err != nil {
			return types.ScrapedMetadata{}, err
		}
		if !scraped.Restricted {
			res := p.classifier.Classify(scraped.Title, scraped.Text, scraped.DurationSec)
			scraped.Category = res.Category
			scraped.Level = res.Level
			scraped.ILRScore = res.ILRScore
		}
		return *scraped, nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Audio scrapes the item and converts its stream descriptor into an audio
// artifact. Restricted items refuse extraction outright.
func (p *Pipeline) Audio(ctx context.Context, itemURL string) (*audio.Artifact, error) {
	meta, err := p.Scrape(ctx, itemURL, false)
	if err != nil {
		return nil, err
	}
	if meta.Restricted {
		return nil, fmt.Errorf("%w: %s is geo-restricted", types.ErrExtractionFailed, itemURL)
	}
	return p.extractor.Extract(ctx, meta)
}
