package audio

import (
	"context"
	"fmt"
	"io"

	"volna/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// openMP4 demuxes the audio track out of a progressive MP4 via ffmpeg,
// copying the codec bitstream into an ADTS container so nothing is ever
// re-encoded or buffered whole. Without ffmpeg on PATH the caller gets a
// redirect descriptor instead.
func (e *Extractor) openMP4(ctx context.Context, cancel context.CancelFunc, mp4URL string) (*Artifact, error) {
	if !e.ffmpegReady {
		cancel()
		return &Artifact{
			Redirect: &types.StreamRedirect{StreamType: "mp4", URL: mp4URL},
		}, nil
	}

	pr, pw := io.Pipe()
	cmd := ffmpeg.Input(mp4URL).
		Output("pipe:", ffmpeg.KwArgs{"map": "0:a:0", "c:a": "copy", "f": "adts"}).
		WithOutput(pw).
		Compile()

	if err := cmd.Start(); err != nil {
		cancel()
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("%w: starting ffmpeg: %v", types.ErrExtractionFailed, err)
	}

	// Watchdog: reap the process and propagate its fate into the pipe so a
	// reader blocked mid-stream observes the failure rather than a clean EOF.
	go func() {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			if err != nil {
				pw.CloseWithError(fmt.Errorf("%w: ffmpeg: %v", types.ErrExtractionFailed, err))
			} else {
				pw.Close()
			}
		case <-ctx.Done():
			cmd.Process.Kill()
			<-done
			pw.CloseWithError(fmt.Errorf("%w: %v", types.ErrExtractionFailed, ctx.Err()))
		}
		cancel()
	}()

	return &Artifact{
		ContentType: "audio/aac",
		Body:        &demuxBody{pr: pr, cancel: cancel},
	}, nil
}

// demuxBody ties the pipe reader to the extraction deadline; closing it
// cancels the context, which kills a still-running ffmpeg.
type demuxBody struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
}

func (b *demuxBody) Read(p []byte) (int, error) { return b.pr.Read(p) }

func (b *demuxBody) Close() error {
	b.cancel()
	return b.pr.Close()
}
