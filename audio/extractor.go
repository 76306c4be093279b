package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"

	"volna/config"
	"volna/types"
)

// Artifact is the deliverable of one extraction: either a bounded audio
// byte stream with a MIME type, or a redirect descriptor when direct
// demuxing is not performed. Exactly one of Body/Redirect is set.
type Artifact struct {
	ContentType string
	Body        io.ReadCloser
	Redirect    *types.StreamRedirect
}

// Extractor turns a resolved stream descriptor into an audio artifact.
// Transfer is streamed segment-by-segment (HLS) or piped through the
// demuxer (MP4); peak memory stays bounded regardless of media length.
type Extractor struct {
	client      *http.Client
	ffmpegReady bool
}

// NewExtractor probes once for the ffmpeg binary; when it is absent the
// MP4 path degrades to the redirect descriptor.
func NewExtractor() *Extractor {
	_, err := exec.LookPath("ffmpeg")
	return &Extractor{
		// Deadlines come from the per-extraction context, not a client
		// timeout that would cap total streaming time at dial time.
		client:      &http.Client{},
		ffmpegReady: err == nil,
	}
}

// Extract consumes metadata with exactly one stream descriptor set. The
// whole operation, manifest to last byte, is bounded by config.AudioTimeout.
// On failure no artifact is returned; a body handed to the caller owns the
// deadline and must be closed.
func (e *Extractor) Extract(ctx context.Context, meta *types.ScrapedMetadata) (*Artifact, error) {
	if meta == nil || meta.Restricted {
		return nil, fmt.Errorf("%w: stream is restricted", types.ErrExtractionFailed)
	}
	if !meta.HasStream() {
		return nil, fmt.Errorf("%w: metadata carries no usable stream descriptor", types.ErrExtractionFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, config.AudioTimeout)
	if meta.M3U8URL != "" {
		art, err := e.openHLS(ctx, cancel, meta.M3U8URL)
		if err != nil {
			cancel()
			return nil, err
		}
		return art, nil
	}

	return e.openMP4(ctx, cancel, meta.MP4URL)
}

// get fetches a URL under the extraction deadline and returns the response
// body stream. Non-success statuses map to ErrExtractionFailed.
func (e *Extractor) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", types.ErrExtractionFailed, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", types.ErrExtractionFailed, url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (e *Extractor) getAll(ctx context.Context, url string) ([]byte, error) {
	body, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", types.ErrExtractionFailed, url, err)
	}
	return data, nil
}
