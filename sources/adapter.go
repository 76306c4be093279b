package sources

import (
	"context"
	"net/url"

	"volna/types"
)

// Adapter normalizes one news site's native interface into the common item
// schema. Implementations are stateless and shared; the registry owns them.
type Adapter interface {
	// Site returns the registry key, e.g. "rt".
	Site() string

	// Match reports whether the parsed item URL belongs to this adapter.
	Match(u *url.URL) bool

	// Discover returns up to max most-recent items for a category,
	// reflecting live upstream state at call time.
	// Fails with types.ErrSourceUnavailable when the upstream is
	// unreachable or erroring, types.ErrParse when the response shape
	// changed.
	Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error)

	// ExtractMetadata resolves the stream descriptor and restriction flag
	// for one item. Geo-restriction markers must be detected positively
	// and reported via Restricted rather than by returning a dead stream
	// link. Fails with types.ErrNotFound when the URL is not resolvable
	// by this adapter.
	ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error)
}
