package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"volna/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return &Extractor{client: &http.Client{}, ffmpegReady: false}
}

func segmentPayload(i int) []byte {
	return bytes.Repeat([]byte{byte('A' + i)}, 512)
}

// newHLSServer serves a master playlist, two media playlists and three
// segments. It counts which media playlist was fetched.
func newHLSServer(t *testing.T, lowFetched *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=2000000\n"+
			"high.m3u8\n"+
			"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=500000\n"+
			"low.m3u8\n")
	})
	media := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:10\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:10.0,\nseg0.ts\n" +
		"#EXTINF:10.0,\nseg1.ts\n" +
		"#EXTINF:10.0,\nseg2.ts\n" +
		"#EXT-X-ENDLIST\n"
	mux.HandleFunc("/low.m3u8", func(w http.ResponseWriter, r *http.Request) {
		if lowFetched != nil {
			atomic.AddInt32(lowFetched, 1)
		}
		fmt.Fprint(w, media)
	})
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, media)
	})
	for i := 0; i < 3; i++ {
		payload := segmentPayload(i)
		mux.HandleFunc(fmt.Sprintf("/seg%d.ts", i), func(w http.ResponseWriter, r *http.Request) {
			w.Write(payload)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractHLSStitchesSegmentsInOrder(t *testing.T) {
	srv := newHLSServer(t, nil)
	e := newTestExtractor()

	art, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/media.m3u8"})
	require.NoError(t, err)
	require.NotNil(t, art.Body)
	defer art.Body.Close()

	assert.Equal(t, "audio/mp2t", art.ContentType)
	assert.Nil(t, art.Redirect)

	got, err := io.ReadAll(art.Body)
	require.NoError(t, err)

	want := append(append(segmentPayload(0), segmentPayload(1)...), segmentPayload(2)...)
	assert.Equal(t, want, got)
}

func TestExtractHLSMasterPicksLowestBandwidth(t *testing.T) {
	var lowFetched int32
	srv := newHLSServer(t, &lowFetched)
	e := newTestExtractor()

	art, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/master.m3u8"})
	require.NoError(t, err)
	defer art.Body.Close()

	got, err := io.ReadAll(art.Body)
	require.NoError(t, err)
	assert.Len(t, got, 3*512)
	assert.Equal(t, int32(1), atomic.LoadInt32(&lowFetched))
}

func TestExtractHLSContentTypeFromSegmentExtension(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10.0,\nchunk.aac\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/chunk.aac", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("aacdata"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	e := newTestExtractor()

	art, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/media.m3u8"})
	require.NoError(t, err)
	defer art.Body.Close()

	assert.Equal(t, "audio/aac", art.ContentType)
}

func TestExtractHLSFailsBeforeBodyOnBrokenFirstSegment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10.0,\nmissing.ts\n#EXT-X-ENDLIST\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	e := newTestExtractor()

	_, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/media.m3u8"})
	assert.ErrorIs(t, err, types.ErrExtractionFailed)
}

func TestExtractHLSMidStreamFailureSurfacesInRead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10.0,\nseg0.ts\n#EXTINF:10.0,\ngone.ts\n#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write(segmentPayload(0))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	e := newTestExtractor()

	art, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/media.m3u8"})
	require.NoError(t, err)
	defer art.Body.Close()

	_, err = io.ReadAll(art.Body)
	assert.ErrorIs(t, err, types.ErrExtractionFailed)
}

func TestExtractHLSEmptyPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-ENDLIST\n")
	}))
	defer srv.Close()
	e := newTestExtractor()

	_, err := e.Extract(context.Background(), &types.ScrapedMetadata{M3U8URL: srv.URL + "/media.m3u8"})
	assert.ErrorIs(t, err, types.ErrExtractionFailed)
}

func TestExtractMP4RedirectsWithoutDemuxer(t *testing.T) {
	e := newTestExtractor()

	art, err := e.Extract(context.Background(), &types.ScrapedMetadata{MP4URL: "https://cdn.test/item.mp4"})
	require.NoError(t, err)

	assert.Nil(t, art.Body)
	require.NotNil(t, art.Redirect)
	assert.Equal(t, "mp4", art.Redirect.StreamType)
	assert.Equal(t, "https://cdn.test/item.mp4", art.Redirect.URL)
}

func TestExtractRejectsRestrictedAndStreamlessMetadata(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name string
		meta *types.ScrapedMetadata
	}{
		{"restricted", &types.ScrapedMetadata{Restricted: true}},
		{"no stream", &types.ScrapedMetadata{Title: "Без потока"}},
		{"both streams", &types.ScrapedMetadata{M3U8URL: "a", MP4URL: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.meta)
			assert.ErrorIs(t, err, types.ErrExtractionFailed)
		})
	}
}
