// Package wavrec writes drained APU samples to disk as a 16-bit stereo WAV
// file. Samples are streamed to the encoder; the header sizes are patched
// in on Close.
package wavrec

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/FabianRolfMatthiasNoll/dmgcore/internal/apu"
)

const (
	bitDepth  = 16
	channels  = 2
	pcmFormat = 1
)

// Recorder appends stereo samples to a WAV file.
type Recorder struct {
	f      *os.File
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	frames int
}

// Create opens path for writing at the given sample rate.
func Create(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wavrec: %w", err)
	}
	return &Recorder{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, bitDepth, channels, pcmFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write encodes the samples, left channel first.
func (r *Recorder) Write(samples []apu.StereoSample) error {
	if len(samples) == 0 {
		return nil
	}
	data := r.buf.Data[:0]
	for _, s := range samples {
		data = append(data, int(s.Left), int(s.Right))
	}
	r.buf.Data = data
	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("wavrec: %w", err)
	}
	r.frames += len(samples)
	return nil
}

// Frames is the number of stereo frames written so far.
func (r *Recorder) Frames() int { return r.frames }

// Close finalizes the header and closes the file.
func (r *Recorder) Close() (rerr error) {
	defer func() {
		if err := r.f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavrec: %w", err)
		}
	}()
	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("wavrec: %w", err)
	}
	return nil
}
