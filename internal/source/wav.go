package source

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes PCM WAV files of 8, 16, 24 or 32 bits
type WAVDecoder struct{}

// Decode implements Decoder
func (WAVDecoder) Decode(r io.ReadSeeker) (Source, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	if dec.NumChans == 0 {
		return nil, fmt.Errorf("WAV file declares no channels")
	}

	divisor, offset, err := wavScale(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}

	return &wavSource{
		dec:      dec,
		rate:     int(dec.SampleRate),
		channels: int(dec.NumChans),
		divisor:  divisor,
		offset:   offset,
		buf: &audio.IntBuffer{
			Format: &audio.Format{SampleRate: int(dec.SampleRate), NumChannels: int(dec.NumChans)},
		},
	}, nil
}

// wavScale returns the divisor and offset mapping integer samples to [-1, 1].
// 8-bit WAV data is unsigned.
func wavScale(bitDepth int) (divisor float32, offset int, err error) {
	switch bitDepth {
	case 8:
		return 128.0, 128, nil
	case 16:
		return 32768.0, 0, nil
	case 24:
		return 8388608.0, 0, nil
	case 32:
		return 2147483648.0, 0, nil
	default:
		return 0, 0, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
}

type wavSource struct {
	dec      *wav.Decoder
	rate     int
	channels int
	divisor  float32
	offset   int
	buf      *audio.IntBuffer
}

func (s *wavSource) SampleRate() int { return s.rate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v-s.offset) / s.divisor
	}
	switch {
	case n > 0 && err == io.EOF:
		return n, nil
	case err != nil:
		return n, err
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}
