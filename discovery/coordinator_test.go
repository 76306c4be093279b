package discovery

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"testing"

	"volna/cache"
	"volna/classify"
	"volna/sources"
	"volna/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter serves canned items (or a canned error) and counts calls.
type stubAdapter struct {
	site  string
	items []types.DiscoveredItem
	err   error
	calls int32
}

func (s *stubAdapter) Site() string          { return s.site }
func (s *stubAdapter) Match(u *url.URL) bool { return u.Hostname() == s.site+".test" }

func (s *stubAdapter) Discover(ctx context.Context, category string, max int) ([]types.DiscoveredItem, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.items) > max {
		return s.items[:max], nil
	}
	return s.items, nil
}

func (s *stubAdapter) ExtractMetadata(ctx context.Context, itemURL string) (*types.ScrapedMetadata, error) {
	return nil, types.ErrNotFound
}

func stubItems(site string, n int) []types.DiscoveredItem {
	items := make([]types.DiscoveredItem, n)
	for i := range items {
		items[i] = types.DiscoveredItem{
			URL:         fmt.Sprintf("https://%s.test/video/%d", site, i),
			Title:       fmt.Sprintf("Сборная выиграла матч %s %d", site, i),
			SourceKey:   types.SourceKey(site + ":news"),
			ContentType: types.ContentTypeVideo,
			DurationSec: 300,
		}
	}
	return items
}

func newTestCoordinator(t *testing.T, adapters ...sources.Adapter) *Coordinator {
	t.Helper()
	classifier, err := classify.New()
	require.NoError(t, err)
	return NewCoordinator(sources.NewRegistry(adapters...), cache.New(), classifier)
}

func TestDiscoverMergesLiveSources(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 2)}
	b := &stubAdapter{site: "beta", items: stubItems("beta", 2)}
	co := newTestCoordinator(t, a, b)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "beta:news"}, 10, false)

	assert.True(t, batch.Success)
	assert.Empty(t, batch.Failed)
	assert.Len(t, batch.Items, 4)
}

func TestDiscoverIsolatesFailingSource(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 2)}
	b := &stubAdapter{site: "beta", err: fmt.Errorf("%w: refused", types.ErrSourceUnavailable)}
	co := newTestCoordinator(t, a, b)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "beta:news"}, 10, false)

	assert.True(t, batch.Success)
	assert.Equal(t, []string{"beta:news"}, batch.Failed)
	assert.Len(t, batch.Items, 2)
	for _, item := range batch.Items {
		assert.Equal(t, types.SourceKey("alpha:news"), item.SourceKey)
	}
}

func TestDiscoverFailsOnlyWhenAllSourcesFail(t *testing.T) {
	a := &stubAdapter{site: "alpha", err: fmt.Errorf("%w: refused", types.ErrSourceUnavailable)}
	b := &stubAdapter{site: "beta", err: fmt.Errorf("%w: bad shape", types.ErrParse)}
	co := newTestCoordinator(t, a, b)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "beta:news"}, 10, false)

	assert.False(t, batch.Success)
	assert.ElementsMatch(t, []string{"alpha:news", "beta:news"}, batch.Failed)
	assert.Empty(t, batch.Items)
}

func TestDiscoverUnknownSourceIsAbsentNotFatal(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 1)}
	co := newTestCoordinator(t, a)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "ghost:news"}, 10, false)

	assert.True(t, batch.Success)
	assert.Equal(t, []string{"ghost:news"}, batch.Failed)
	assert.Len(t, batch.Items, 1)
}

func TestDiscoverRoundRobinTruncation(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 3)}
	b := &stubAdapter{site: "beta", items: stubItems("beta", 3)}
	co := newTestCoordinator(t, a, b)

	batch := co.Discover(context.Background(), []types.SourceKey{"beta:news", "alpha:news"}, 4, false)

	require.Len(t, batch.Items, 4)
	// Sources interleave in key order regardless of how the caller listed them.
	want := []string{
		"https://alpha.test/video/0",
		"https://beta.test/video/0",
		"https://alpha.test/video/1",
		"https://beta.test/video/1",
	}
	for i, item := range batch.Items {
		assert.Equal(t, want[i], item.URL)
	}
}

func TestDiscoverDeterministicForFixedInput(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 3)}
	b := &stubAdapter{site: "beta", items: stubItems("beta", 3)}
	co := newTestCoordinator(t, a, b)

	first := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "beta:news"}, 5, false)
	second := co.Discover(context.Background(), []types.SourceKey{"beta:news", "alpha:news"}, 5, false)

	assert.Equal(t, first.Items, second.Items)
}

func TestDiscoverSuppressesCrossSourceDuplicates(t *testing.T) {
	shared := types.DiscoveredItem{
		URL:         "https://alpha.test/video/0?utm_source=rss",
		Title:       "Сборная выиграла матч",
		SourceKey:   "alpha:news",
		ContentType: types.ContentTypeVideo,
		DurationSec: 300,
	}
	mirrored := shared
	mirrored.URL = "https://alpha.test/video/0"
	mirrored.SourceKey = "beta:news"

	a := &stubAdapter{site: "alpha", items: []types.DiscoveredItem{shared}}
	b := &stubAdapter{site: "beta", items: []types.DiscoveredItem{mirrored}}
	co := newTestCoordinator(t, a, b)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news", "beta:news"}, 10, false)

	assert.True(t, batch.Success)
	assert.Len(t, batch.Items, 1)
}

func TestDiscoverFiltersNonSpeechItems(t *testing.T) {
	items := stubItems("alpha", 1)
	items = append(items, types.DiscoveredItem{
		URL:         "https://alpha.test/video/clip",
		Title:       "Вышел новый клип группы",
		SourceKey:   "alpha:news",
		ContentType: types.ContentTypeVideo,
		DurationSec: 200,
	})
	a := &stubAdapter{site: "alpha", items: items}
	co := newTestCoordinator(t, a)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news"}, 10, false)

	require.Len(t, batch.Items, 1)
	assert.Equal(t, "https://alpha.test/video/0", batch.Items[0].URL)
}

func TestDiscoverEnrichesItemsWithClassification(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 2)}
	co := newTestCoordinator(t, a)

	batch := co.Discover(context.Background(), []types.SourceKey{"alpha:news"}, 10, false)

	require.NotEmpty(t, batch.Items)
	for _, item := range batch.Items {
		assert.NotEmpty(t, item.Category)
		assert.NotEmpty(t, item.Level)
	}
}

func TestDiscoverServesRepeatFromCache(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 2)}
	co := newTestCoordinator(t, a)

	keys := []types.SourceKey{"alpha:news"}
	co.Discover(context.Background(), keys, 10, false)
	co.Discover(context.Background(), keys, 10, false)

	assert.Equal(t, int32(1), atomic.LoadInt32(&a.calls))
}

func TestDiscoverNocacheForcesFreshFetch(t *testing.T) {
	a := &stubAdapter{site: "alpha", items: stubItems("alpha", 2)}
	co := newTestCoordinator(t, a)

	keys := []types.SourceKey{"alpha:news"}
	co.Discover(context.Background(), keys, 10, false)
	co.Discover(context.Background(), keys, 10, true)

	assert.Equal(t, int32(2), atomic.LoadInt32(&a.calls))
}
