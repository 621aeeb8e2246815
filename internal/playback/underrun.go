package playback

import (
	"math"
	"math/rand/v2"
)

const (
	// ToneFrequency is the reference tone played by PolicyTone, in Hz
	ToneFrequency = 440
	// toneAmplitude is the tone peak relative to full scale
	toneAmplitude = 0.5
	// noisePeak bounds noise samples to two thirds of full scale
	noisePeak = 21845
)

// underrunFiller synthesizes output when the consumer finds no ready slot.
// It is only touched from the callback, and reconfigured while stopped.
type underrunFiller struct {
	policy     PolicyKind
	channels   int
	sampleRate int
	rng        *rand.Rand

	// toneFrame counts frames of tone emitted, modulo sampleRate. With an
	// integer frequency the waveform repeats exactly every sampleRate frames,
	// so the phase stays exact however long the tone runs.
	toneFrame int
}

func newUnderrunFiller(policy PolicyKind, sampleRate, channels int, seed uint64) *underrunFiller {
	return &underrunFiller{
		policy:     policy,
		channels:   channels,
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// fill writes one region of synthesized interleaved output
func (f *underrunFiller) fill(dst []int16) {
	switch f.policy {
	case PolicyNoise:
		for i := range dst {
			dst[i] = int16(f.rng.IntN(2*noisePeak+1) - noisePeak)
		}
	case PolicyTone:
		for i := 0; i+f.channels <= len(dst); i += f.channels {
			v := toneSample(f.toneFrame, f.sampleRate)
			for ch := range f.channels {
				dst[i+ch] = v
			}
			f.toneFrame++
			if f.toneFrame == f.sampleRate {
				f.toneFrame = 0
			}
		}
	default:
		clear(dst)
	}
}

func toneSample(frame, sampleRate int) int16 {
	phase := float64(frame*ToneFrequency%sampleRate) / float64(sampleRate)
	return int16(math.Round(toneAmplitude * math.MaxInt16 * math.Sin(2*math.Pi*phase)))
}
