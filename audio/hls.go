package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"volna/types"

	"github.com/grafov/m3u8"
)

// openHLS resolves an HLS manifest down to a flat segment list and returns
// a body that stitches the segments into one continuous stream. The first
// segment is fetched eagerly so that a broken stream fails before any bytes
// are handed to the caller.
func (e *Extractor) openHLS(ctx context.Context, cancel context.CancelFunc, manifestURL string) (*Artifact, error) {
	segments, err := e.resolveSegments(ctx, manifestURL, 0)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: playlist %s has no segments", types.ErrExtractionFailed, manifestURL)
	}

	stream := &hlsStream{
		ctx:      ctx,
		cancel:   cancel,
		client:   e.client,
		segments: segments,
	}
	if err := stream.prime(); err != nil {
		return nil, err
	}

	return &Artifact{
		ContentType: segmentContentType(segments[0]),
		Body:        stream,
	}, nil
}

// resolveSegments fetches and decodes a playlist. Master playlists recurse
// once into the chosen variant; a media playlist yields absolute segment
// URLs in play order.
func (e *Extractor) resolveSegments(ctx context.Context, playlistURL string, depth int) ([]string, error) {
	if depth > 2 {
		return nil, fmt.Errorf("%w: playlist nesting too deep at %s", types.ErrExtractionFailed, playlistURL)
	}

	data, err := e.getAll(ctx, playlistURL)
	if err != nil {
		return nil, err
	}

	// Lenient decode: upstream playlists routinely omit optional tags.
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding playlist %s: %v", types.ErrExtractionFailed, playlistURL, err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		variant, err := pickVariant(master)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrExtractionFailed, playlistURL, err)
		}
		next, err := resolveRef(playlistURL, variant)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving variant %q: %v", types.ErrExtractionFailed, variant, err)
		}
		return e.resolveSegments(ctx, next, depth+1)

	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		segments := make([]string, 0, media.Count())
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			abs, err := resolveRef(playlistURL, seg.URI)
			if err != nil {
				return nil, fmt.Errorf("%w: resolving segment %q: %v", types.ErrExtractionFailed, seg.URI, err)
			}
			segments = append(segments, abs)
		}
		return segments, nil
	}

	return nil, fmt.Errorf("%w: %s is not a recognized playlist", types.ErrExtractionFailed, playlistURL)
}

// pickVariant favors a dedicated audio rendition; failing that, the lowest
// bandwidth variant is the cheapest carrier of the muxed audio track.
func pickVariant(master *m3u8.MasterPlaylist) (string, error) {
	var lowest *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		for _, alt := range v.Alternatives {
			if alt != nil && alt.Type == "AUDIO" && alt.URI != "" {
				return alt.URI, nil
			}
		}
		if v.URI != "" && (lowest == nil || v.Bandwidth < lowest.Bandwidth) {
			lowest = v
		}
	}
	if lowest == nil {
		return "", fmt.Errorf("master playlist has no variants")
	}
	return lowest.URI, nil
}

func resolveRef(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

func segmentContentType(segmentURL string) string {
	u, err := url.Parse(segmentURL)
	if err != nil {
		return "audio/mp2t"
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".aac":
		return "audio/aac"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	default:
		return "audio/mp2t"
	}
}

// hlsStream reads segments in order, holding at most one open segment
// response at a time.
type hlsStream struct {
	ctx      context.Context
	cancel   context.CancelFunc
	client   *http.Client
	segments []string
	next     int
	cur      io.ReadCloser
}

// prime opens the first segment so that transport problems surface before
// any response headers are committed downstream.
func (s *hlsStream) prime() error {
	rc, err := s.open(s.segments[0])
	if err != nil {
		return err
	}
	s.next = 1
	s.cur = rc
	return nil
}

func (s *hlsStream) open(segmentURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching segment %s: %v", types.ErrExtractionFailed, segmentURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: segment %s returned %d", types.ErrExtractionFailed, segmentURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *hlsStream) Read(p []byte) (int, error) {
	for {
		if s.cur == nil {
			if s.next >= len(s.segments) {
				return 0, io.EOF
			}
			rc, err := s.open(s.segments[s.next])
			if err != nil {
				return 0, err
			}
			s.next++
			s.cur = rc
		}

		n, err := s.cur.Read(p)
		if err == io.EOF {
			s.cur.Close()
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *hlsStream) Close() error {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
	s.cancel()
	return nil
}
