// Package keypool rotates API credentials across request tiers so that
// rate limits on a single key do not stall the whole assistant.
package keypool

import (
	"errors"
	"sync"
)

// Tier selects which credential bucket a request draws from.
type Tier string

const (
	TierSimple  Tier = "simple"
	TierComplex Tier = "complex"
)

// ErrNoKeys is returned when no credential is configured for a tier and the
// general bucket is empty too.
var ErrNoKeys = errors.New("keypool: no API keys configured")

// Pool holds per-tier credential buckets. Each bucket rotates on its own
// cursor, so draws on one tier never perturb another tier's ordering.
type Pool struct {
	mu      sync.Mutex
	simple  bucket
	complex bucket
	general bucket
}

type bucket struct {
	keys   []string
	cursor uint64
}

// New builds a pool. Any bucket may be empty; tiers without keys of their
// own fall back to the general bucket and share its cursor.
func New(simple, complex, general []string) *Pool {
	return &Pool{
		simple:  bucket{keys: dedupe(simple)},
		complex: bucket{keys: dedupe(complex)},
		general: bucket{keys: dedupe(general)},
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (p *Pool) bucket(tier Tier) *bucket {
	var b *bucket
	switch tier {
	case TierComplex:
		b = &p.complex
	default:
		b = &p.simple
	}
	if len(b.keys) == 0 {
		b = &p.general
	}
	return b
}

// Next returns the next credential for tier and advances that bucket's
// cursor.
func (p *Pool) Next(tier Tier) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.bucket(tier)
	if len(b.keys) == 0 {
		return "", ErrNoKeys
	}
	key := b.keys[b.cursor%uint64(len(b.keys))]
	b.cursor++
	return key, nil
}

// Rotation returns every credential for tier in draw order starting at the
// bucket's current cursor, one entry per key. Callers walk it to retry a
// failed request on each remaining key exactly once.
func (p *Pool) Rotation(tier Tier) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.bucket(tier)
	if len(b.keys) == 0 {
		return nil, ErrNoKeys
	}
	out := make([]string, len(b.keys))
	for i := range b.keys {
		out[i] = b.keys[(b.cursor+uint64(i))%uint64(len(b.keys))]
	}
	b.cursor++
	return out, nil
}

// Size reports how many credentials serve a tier after fallback.
func (p *Pool) Size(tier Tier) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bucket(tier).keys)
}
