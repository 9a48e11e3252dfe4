// Package sound synthesizes the short WAV cues clients play for
// notifications.
package sound

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

const SampleRate = 22050

var ErrUnknownCue = errors.New("unknown sound cue")

type tone struct {
	freq     float64
	duration float64 // seconds
	gap      float64 // silence after, seconds
}

var cues = map[string][]tone{
	"message": {{880, 0.09, 0.04}, {1320, 0.12, 0}},
	"payment": {{523.25, 0.1, 0.02}, {659.25, 0.1, 0.02}, {783.99, 0.18, 0}},
	"status":  {{660, 0.15, 0}},
	"alert":   {{440, 0.12, 0.08}, {440, 0.12, 0}},
}

func Cues() []string {
	return []string{"alert", "message", "payment", "status"}
}

// Synth caches rendered cues. Lookups fall through three tiers: the cache,
// fresh synthesis, then the fallback beep rendered at Init.
type Synth struct {
	mu       sync.RWMutex
	cache    map[string][]byte
	fallback []byte
	volume   float64
	render   func(name string) ([]byte, error)
}

func New(volume float64) *Synth {
	if volume <= 0 || volume > 1 {
		volume = 0.4
	}
	s := &Synth{volume: volume}
	s.render = s.synthesize
	return s
}

// Init renders the fallback beep and warms the cache.
func (s *Synth) Init() error {
	fb, err := s.encode([]tone{{880, 0.08, 0}})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fallback = fb
	s.cache = make(map[string][]byte, len(cues))
	s.mu.Unlock()
	for _, name := range Cues() {
		if _, err := s.Cue(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synth) Close() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// Cue returns the WAV bytes for name. Known cues never fail once Init has run.
func (s *Synth) Cue(name string) ([]byte, error) {
	if _, ok := cues[name]; !ok {
		return nil, ErrUnknownCue
	}
	s.mu.RLock()
	b, ok := s.cache[name]
	fb := s.fallback
	s.mu.RUnlock()
	if ok {
		return b, nil
	}
	b, err := s.render(name)
	if err != nil {
		if fb != nil {
			return fb, nil
		}
		return nil, err
	}
	s.mu.Lock()
	if s.cache != nil {
		s.cache[name] = b
	}
	s.mu.Unlock()
	return b, nil
}

func (s *Synth) synthesize(name string) ([]byte, error) {
	return s.encode(cues[name])
}

func (s *Synth) encode(tones []tone) ([]byte, error) {
	var samples []int16
	for _, t := range tones {
		samples = append(samples, s.renderTone(t)...)
		samples = append(samples, make([]int16, int(t.gap*SampleRate))...)
	}
	return EncodeWAV(samples, SampleRate)
}

// renderTone produces a sine burst with a short linear attack and release.
func (s *Synth) renderTone(t tone) []int16 {
	n := int(t.duration * SampleRate)
	ramp := SampleRate / 100
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		env := 1.0
		if i < ramp {
			env = float64(i) / float64(ramp)
		} else if n-i < ramp {
			env = float64(n-i) / float64(ramp)
		}
		v := math.Sin(2*math.Pi*t.freq*float64(i)/SampleRate) * env * s.volume
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

// EncodeWAV writes mono 16-bit PCM samples as a RIFF/WAVE file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	w := func(v any) error { return binary.Write(&buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	if err := w(uint32(36 + dataSize)); err != nil {
		return nil, err
	}
	buf.WriteString("WAVEfmt ")
	header := []any{
		uint32(16),
		uint16(1), // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate * channels * bitsPerSample / 8),
		uint16(channels * bitsPerSample / 8),
		uint16(bitsPerSample),
	}
	for _, v := range header {
		if err := w(v); err != nil {
			return nil, err
		}
	}
	buf.WriteString("data")
	if err := w(uint32(dataSize)); err != nil {
		return nil, err
	}
	if err := w(samples); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
