package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func testParams() Params {
	return Params{
		SampleRate:   24000,
		Channels:     1,
		RMSThreshold: 1000,
		Silence:      1500 * time.Millisecond,
		MinUtterance: time.Second,
		MaxBuffer:    60 * time.Second,
	}
}

// tone builds d worth of loud 16-bit PCM at the params' sample rate.
func tone(p Params, d time.Duration, amplitude int16) []byte {
	samples := int(d.Seconds() * float64(p.SampleRate) * float64(p.Channels))
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		s := amplitude
		if i%2 == 1 {
			s = -amplitude
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestTryFlushAfterSilence(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 2*time.Second, 5000))

	// Silence window has not elapsed yet.
	if _, ok := b.TryFlush(nil); ok {
		t.Fatal("flushed before silence window elapsed")
	}

	clock = clock.Add(2 * time.Second)
	data, ok := b.TryFlush(nil)
	if !ok {
		t.Fatal("expected flush after silence")
	}
	if len(data) == 0 {
		t.Fatal("flush returned no audio")
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty after flush: %d bytes", b.Len())
	}
}

func TestIngestResetsSilenceClock(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 2*time.Second, 5000))
	clock = clock.Add(time.Second)
	b.Ingest(tone(p, time.Second, 5000))
	clock = clock.Add(time.Second)

	// Only one second since the last ingest, under the 1.5s window.
	if _, ok := b.TryFlush(nil); ok {
		t.Fatal("flush fired despite recent ingest")
	}
}

func TestMinUtteranceGate(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 300*time.Millisecond, 5000))
	clock = clock.Add(5 * time.Second)

	if _, ok := b.TryFlush(nil); ok {
		t.Fatal("flushed a buffer shorter than the minimum utterance")
	}
}

func TestQuietBufferDiscarded(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 2*time.Second, 10)) // room tone, way under threshold
	clock = clock.Add(2 * time.Second)

	if _, ok := b.TryFlush(nil); ok {
		t.Fatal("quiet buffer should be discarded, not flushed")
	}
	if b.Len() != 0 {
		t.Errorf("quiet buffer not cleared: %d bytes", b.Len())
	}
}

func TestGateBlocksFlush(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 2*time.Second, 5000))
	clock = clock.Add(2 * time.Second)

	if _, ok := b.TryFlush(func() bool { return false }); ok {
		t.Fatal("flush fired while the gate was closed")
	}
	if b.Len() == 0 {
		t.Fatal("audio dropped while the gate was closed")
	}

	if _, ok := b.TryFlush(func() bool { return true }); !ok {
		t.Fatal("flush should fire once the gate opens")
	}
}

func TestDropOldestOverCap(t *testing.T) {
	p := testParams()
	p.MaxBuffer = time.Second
	b := NewBuffer(p)

	clock := time.Unix(100, 0)
	b.now = func() time.Time { return clock }

	b.Ingest(tone(p, 3*time.Second, 5000))

	max := p.bytesFor(p.MaxBuffer)
	if got := b.Len(); got > max {
		t.Errorf("buffer holds %d bytes, cap is %d", got, max)
	}
	if d := b.Duration(); d > p.MaxBuffer {
		t.Errorf("buffer holds %v of audio, cap is %v", d, p.MaxBuffer)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}

	// A constant-amplitude square wave has RMS equal to its amplitude.
	pcm := make([]byte, 200)
	for i := 0; i < 100; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(4000)))
	}
	if got := RMS(pcm); math.Abs(got-4000) > 0.01 {
		t.Errorf("RMS = %v, want 4000", got)
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := make([]byte, 8)
	binary.LittleEndian.PutUint16(stereo[0:], uint16(int16(1000))) // L
	binary.LittleEndian.PutUint16(stereo[2:], uint16(int16(3000))) // R
	neg := int16(-500)
	binary.LittleEndian.PutUint16(stereo[4:], uint16(neg))
	binary.LittleEndian.PutUint16(stereo[6:], uint16(int16(500)))

	mono := StereoToMono(stereo)
	if len(mono) != 4 {
		t.Fatalf("mono length = %d, want 4", len(mono))
	}
	if got := int16(binary.LittleEndian.Uint16(mono[0:])); got != 2000 {
		t.Errorf("frame 0 = %d, want 2000", got)
	}
	if got := int16(binary.LittleEndian.Uint16(mono[2:])); got != 0 {
		t.Errorf("frame 1 = %d, want 0", got)
	}
}

func TestTakeSkipsFlushGates(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	// far below MinUtterance and with no silence elapsed
	b.Ingest(tone(p, 200*time.Millisecond, 3000))

	got := b.Take()
	if len(got) == 0 {
		t.Fatal("Take() returned nothing for loud audio")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after Take, want 0", b.Len())
	}
}

func TestTakeDiscardsQuietAudio(t *testing.T) {
	p := testParams()
	b := NewBuffer(p)

	b.Ingest(tone(p, 200*time.Millisecond, 10))
	if got := b.Take(); got != nil {
		t.Errorf("Take() = %d bytes of quiet audio, want nil", len(got))
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after Take, want 0", b.Len())
	}
}
