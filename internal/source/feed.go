package source

import (
	"context"
	"io"

	"github.com/tphakala/pcmplay/internal/errors"
)

// Sink accepts frames one at a time. *playback.Engine satisfies it.
type Sink interface {
	WriteMono(s float32) error
	WriteStereo(l, r float32) error
}

// feedBlockFrames is how many frames Feed decodes per read
const feedBlockFrames = 1024

// Feed copies every frame of src into sink and returns the number of frames
// written. Mono sources use WriteMono; anything wider writes its first two
// channels with WriteStereo. ctx is checked between blocks.
func Feed(ctx context.Context, src Source, sink Sink) (int64, error) {
	ch := src.Channels()
	if ch < 1 {
		return 0, errors.Newf("source reports %d channels", ch).
			Component(componentSource).
			Category(errors.CategoryAudioSource).
			Build()
	}

	buf := make([]float32, feedBlockFrames*ch)
	var frames int64
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		n, readErr := src.ReadSamples(buf)
		for i := 0; i+ch <= n; i += ch {
			var err error
			if ch == 1 {
				err = sink.WriteMono(buf[i])
			} else {
				err = sink.WriteStereo(buf[i], buf[i+1])
			}
			if err != nil {
				return frames, err
			}
			frames++
		}

		if readErr == io.EOF {
			return frames, nil
		}
		if readErr != nil {
			return frames, errors.New(readErr).
				Component(componentSource).
				Category(errors.CategoryAudioSource).
				Context("operation", "decode").
				Context("frames_written", frames).
				Build()
		}
	}
}
