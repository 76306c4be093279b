package config

import "time"

// Network Bound Constants
const (
	// SourceTimeout bounds a single adapter discovery or scrape call
	SourceTimeout = 60 * time.Second

	// AudioTimeout bounds the whole audio extraction, manifest to last segment
	AudioTimeout = 180 * time.Second

	// SegmentBufferSize is the copy buffer used while streaming segments
	SegmentBufferSize = 64 * 1024
)

// Cache Constants
const (
	// DiscoverTTL is how long a per-source discovery batch stays cached
	DiscoverTTL = 5 * time.Minute

	// ScrapeTTL is how long resolved stream metadata stays cached
	ScrapeTTL = 10 * time.Minute
)

// Discovery Constants
const (
	// DefaultMaxItems is used when the caller omits max
	DefaultMaxItems = 10

	// MaxItemsCap is the hard ceiling on a discovery batch
	MaxItemsCap = 50
)

// Kafka Constants
const (
	// DiscoveredTopic receives classified items from fresh discovery batches
	DiscoveredTopic = "volna.discovered"
)
