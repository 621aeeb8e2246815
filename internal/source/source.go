// Package source decodes audio files into interleaved float32 samples for playback.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/pcmplay/internal/errors"
)

const componentSource = "source"

// Sentinel errors
var (
	// ErrUnsupportedFormat indicates a file extension with no registered decoder
	ErrUnsupportedFormat = errors.New(errors.NewStd("unsupported audio file format")).
				Component(componentSource).
				Category(errors.CategoryAudioSource).
				Build()

	// ErrInvalidStream indicates a decoder rejected the file contents
	ErrInvalidStream = errors.New(errors.NewStd("invalid audio stream")).
				Component(componentSource).
				Category(errors.CategoryFileParsing).
				Build()
)

// Source yields interleaved float32 samples in [-1, 1]
type Source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst with whole frames and returns the number of
	// samples written. It returns io.EOF once the stream is exhausted.
	ReadSamples(dst []float32) (int, error)
	Close() error
}

// Decoder turns an open file into a Source
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

var decoders = map[string]Decoder{
	".wav":  WAVDecoder{},
	".wave": WAVDecoder{},
	".mp3":  MP3Decoder{},
	".ogg":  VorbisDecoder{},
	".oga":  VorbisDecoder{},
}

// Extensions returns the file extensions Open understands
func Extensions() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	return exts
}

// Open decodes the file at path, picking a decoder by extension.
// Closing the returned Source closes the file.
func Open(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)).
			Component(componentSource).
			Category(errors.CategoryAudioSource).
			Context("file_extension", ext).
			Build()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(componentSource).
			Category(errors.CategoryFileIO).
			Context("operation", "open_file").
			Context("file_extension", ext).
			Build()
	}

	src, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		var size int64
		if fi, statErr := f.Stat(); statErr == nil {
			size = fi.Size()
		}
		return nil, errors.New(fmt.Errorf("%w: %w", ErrInvalidStream, err)).
			Component(componentSource).
			Category(errors.CategoryFileParsing).
			FileContext(path, size).
			Build()
	}
	return &fileSource{Source: src, file: f}, nil
}

type fileSource struct {
	Source
	file *os.File
}

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.file.Close())
}
