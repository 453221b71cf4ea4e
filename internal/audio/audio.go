// Package audio accumulates raw PCM from the capture side and decides when
// a buffered utterance is ready to transcribe.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const bytesPerSample = 2 // 16-bit little-endian PCM

// Params describes the PCM format and the flush policy.
type Params struct {
	SampleRate int
	Channels   int

	// RMSThreshold is the minimum signal level for a buffer to count as
	// speech. Quieter buffers are discarded on flush.
	RMSThreshold float64

	// Silence is how long ingest must go quiet before a flush fires.
	Silence time.Duration

	// MinUtterance is the shortest stretch of audio worth transcribing.
	MinUtterance time.Duration

	// MaxBuffer caps how much audio is held. Older samples are dropped
	// first when the cap is hit.
	MaxBuffer time.Duration
}

func (p Params) bytesFor(d time.Duration) int {
	samples := int(d.Seconds() * float64(p.SampleRate))
	return samples * p.Channels * bytesPerSample
}

// Buffer is a single session's utterance accumulator. Safe for concurrent
// use: capture ingests while the pipeline polls for flushes.
type Buffer struct {
	mu         sync.Mutex
	params     Params
	data       []byte
	lastIngest time.Time
	now        func() time.Time
}

// NewBuffer creates an empty buffer.
func NewBuffer(params Params) *Buffer {
	return &Buffer{params: params, now: time.Now}
}

// Ingest appends a chunk of PCM and resets the silence clock. When the
// buffer exceeds its cap the oldest samples are dropped so the tail of the
// utterance survives.
func (b *Buffer) Ingest(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, chunk...)
	if max := b.params.bytesFor(b.params.MaxBuffer); max > 0 && len(b.data) > max {
		drop := len(b.data) - max
		// keep frame alignment so sample boundaries survive the trim
		frame := b.params.Channels * bytesPerSample
		if rem := drop % frame; rem != 0 {
			drop += frame - rem
		}
		if drop >= len(b.data) {
			b.data = b.data[:0]
		} else {
			b.data = append(b.data[:0], b.data[drop:]...)
		}
	}
	b.lastIngest = b.now()
}

// Len reports the buffered byte count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Duration reports how much audio is buffered.
func (b *Buffer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.durationLocked()
}

func (b *Buffer) durationLocked() time.Duration {
	frame := b.params.SampleRate * b.params.Channels * bytesPerSample
	if frame == 0 {
		return 0
	}
	return time.Duration(float64(len(b.data)) / float64(frame) * float64(time.Second))
}

// TryFlush returns the buffered audio when an utterance is complete: the
// silence window has elapsed, enough audio is held, and gate reports the
// pipeline is free to take it. A flushed buffer starts over empty.
//
// Buffers that never crossed the speech threshold are silently discarded,
// which keeps keyboard noise and room tone away from the transcriber.
func (b *Buffer) TryFlush(gate func() bool) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil, false
	}
	if b.now().Sub(b.lastIngest) < b.params.Silence {
		return nil, false
	}
	if b.durationLocked() < b.params.MinUtterance {
		return nil, false
	}
	if gate != nil && !gate() {
		return nil, false
	}

	data := b.data
	b.data = nil

	if RMS(data) < b.params.RMSThreshold {
		return nil, false
	}
	return data, true
}

// Take removes and returns everything buffered, skipping the silence and
// duration checks. Speech that never crossed the energy threshold still
// returns nil. Used when the client forces a flush.
func (b *Buffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := b.data
	b.data = nil
	if RMS(data) < b.params.RMSThreshold {
		return nil
	}
	return data
}

// Reset discards everything buffered.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
}

// RMS computes the root mean square level of 16-bit little-endian PCM.
// Odd trailing bytes are ignored.
func RMS(pcm []byte) float64 {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// StereoToMono averages interleaved stereo 16-bit PCM down to one channel.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / (2 * bytesPerSample)
	out := make([]byte, frames*bytesPerSample)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		m := int16((int32(l) + int32(r)) / 2)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(m))
	}
	return out
}
