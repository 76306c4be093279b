package discovery

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"

	"volna/cache"
	"volna/classify"
	"volna/config"
	"volna/events"
	"volna/sources"
	"volna/types"
)

// Batch is the merged result of one discovery fan-out.
type Batch struct {
	Success bool
	Items   []types.DiscoveredItem
	Failed  []string // source keys that contributed nothing
}

// Coordinator fans a discovery request out across the selected adapters,
// classifies and filters each source's items, and merges the survivors.
// A failing source is recorded as absent and never fails the batch; the
// batch fails only when every source does.
type Coordinator struct {
	registry   *sources.Registry
	cache      *cache.Cache
	classifier *classify.Classifier

	// Snapshots and Publisher are optional side channels fed on fresh
	// (non-cached) fetches only. Nil disables them.
	Snapshots *Snapshotter
	Publisher *events.Publisher
}

// NewCoordinator wires the coordinator over shared, registry-owned adapters.
func NewCoordinator(registry *sources.Registry, c *cache.Cache, classifier *classify.Classifier) *Coordinator {
	return &Coordinator{registry: registry, cache: c, classifier: classifier}
}

// Discover runs the fan-out. Each source call is independently bounded by
// config.SourceTimeout and served through the response cache.
func (co *Coordinator) Discover(ctx context.Context, keys []types.SourceKey, max int, bypass bool) Batch {
	type sourceResult struct {
		key   types.SourceKey
		items []types.DiscoveredItem
		err   error
	}

	results := make([]sourceResult, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key types.SourceKey) {
			defer wg.Done()
			items, err := co.discoverOne(ctx, key, max, bypass)
			results[i] = sourceResult{key: key, items: items, err: err}
		}(i, key)
	}
	wg.Wait()

	// Stable order regardless of how the caller listed the sources, so
	// truncation is deterministic for a fixed input set.
	sort.Slice(results, func(i, j int) bool { return results[i].key < results[j].key })

	var batch Batch
	var live [][]types.DiscoveredItem
	for _, r := range results {
		if r.err != nil {
			log.Printf("Discovery: source %s absent: %v", r.key, r.err)
			batch.Failed = append(batch.Failed, string(r.key))
			continue
		}
		batch.Success = true
		live = append(live, r.items)
	}
	if !batch.Success {
		return batch
	}

	batch.Items = roundRobin(live, max)
	return batch
}

// discoverOne serves one source through the cache; concurrent identical
// requests collapse into a single adapter call.
func (co *Coordinator) discoverOne(ctx context.Context, key types.SourceKey, max int, bypass bool) ([]types.DiscoveredItem, error) {
	adapter, err := co.registry.Resolve(key.Site())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, config.SourceTimeout)
	defer cancel()

	cacheKey := cache.Key("discover", string(key), strconv.Itoa(max))
	return cache.DoJSON(ctx, co.cache, cacheKey, config.DiscoverTTL, bypass, func(ctx context.Context) ([]types.DiscoveredItem, error) {
		raw, err := adapter.Discover(ctx, key.Category(), max)
		if err != nil {
			return nil, err
		}
		items := co.classifyAndFilter(raw)
		if co.Snapshots != nil {
			go co.Snapshots.Store(key, items)
		}
		co.Publisher.PublishBatch(key, items)
		return items, nil
	})
}

// classifyAndFilter enriches adapter items with category and level and drops
// anything the speech filter rejects.
func (co *Coordinator) classifyAndFilter(raw []types.DiscoveredItem) []types.DiscoveredItem {
	items := make([]types.DiscoveredItem, 0, len(raw))
	for _, item := range raw {
		res := co.classifier.Classify(item.Title, item.Description, item.DurationSec)
		if !res.Speech {
			continue
		}
		item.Category = res.Category
		item.Level = res.Level
		items = append(items, item)
	}
	return items
}

// roundRobin interleaves per-source slices one item per source per round
// until max items are taken, suppressing cross-source duplicates.
func roundRobin(perSource [][]types.DiscoveredItem, max int) []types.DiscoveredItem {
	merged := make([]types.DiscoveredItem, 0, max)
	seen := make(map[string]struct{})
	idx := make([]int, len(perSource))

	for len(merged) < max {
		progressed := false
		for s := range perSource {
			if len(merged) == max {
				break
			}
			for idx[s] < len(perSource[s]) {
				item := perSource[s][idx[s]]
				idx[s]++
				hash := ItemHash(item)
				if _, dup := seen[hash]; dup {
					continue
				}
				seen[hash] = struct{}{}
				merged = append(merged, item)
				progressed = true
				break
			}
		}
		if !progressed {
			break
		}
	}
	return merged
}
