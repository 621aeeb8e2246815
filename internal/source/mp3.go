package source

import (
	"encoding/binary"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// mp3Reader is the part of gomp3.Decoder the source uses
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

// MP3Decoder decodes MPEG-1/2 Layer III files. go-mp3 always yields
// 16-bit little-endian stereo.
type MP3Decoder struct{}

// Decode implements Decoder
func (MP3Decoder) Decode(r io.ReadSeeker) (Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return newMP3Source(dec), nil
}

func newMP3Source(dec mp3Reader) *mp3Source {
	return &mp3Source{dec: dec, rate: dec.SampleRate(), buf: make([]byte, 8192)}
}

type mp3Source struct {
	dec  mp3Reader
	rate int
	buf  []byte
	tail []byte // partial sample carried between reads
}

func (s *mp3Source) SampleRate() int { return s.rate }
func (s *mp3Source) Channels() int   { return 2 }
func (s *mp3Source) Close() error    { return nil }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	want := (len(dst) - len(dst)%2) * 2 // bytes for whole stereo frames
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]
	have := copy(buf, s.tail)
	s.tail = s.tail[:0]

	var err error
	for have < 4 && err == nil {
		var n int
		n, err = s.dec.Read(buf[have:])
		have += n
	}

	// keep whole frames only, 4 bytes each
	whole := have - have%4
	s.tail = append(s.tail, buf[whole:have]...)
	for i := range whole / 2 {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(buf[2*i:]))) / 32768.0
	}

	if whole == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if err == io.EOF {
		err = nil // report EOF on the next call
	}
	return whole / 2, err
}
