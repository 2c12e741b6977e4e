// Package prng implements the deterministic PRNG service used throughout
// the toolkit for reproducible noise, dithering, and shuffling: a uniform
// integer/real generator, a paired-Gaussian generator via Box-Muller with a
// cached second sample, and a bit-pool helper for sub-word-width draws.
// Engine selection (Mersenne Twister by default, or a smaller-period
// alternate engine) is resolved once at construction time.
package prng

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Engine selects which underlying generator a PRNG uses.
type Engine int

const (
	// MT19937 is the default engine: Mersenne Twister, max = 2^32-1.
	MT19937 Engine = iota
	// SysRand is a small-period linear-congruential alternate engine,
	// max = 2^31-1, standing in for the system rand()/random() engines.
	SysRand
)

type engine interface {
	seed(uint32)
	next() uint32
	max() uint32
}

// PRNG is a seeded pseudo-random generator with a pluggable engine.
type PRNG struct {
	eng engine

	haveGauss bool
	cached    float64

	pool     uint32
	poolBits int
}

// New creates a PRNG using the named engine. The object is usable
// immediately with an engine-default seed; call Seed or SeedOrDefault to
// pin or randomize it explicitly.
func New(e Engine) *PRNG {
	p := &PRNG{}
	switch e {
	case SysRand:
		p.eng = newLCG(0)
	default:
		p.eng = newMT19937(5489)
	}
	return p
}

// Seed sets the engine's seed, invalidating any cached Gaussian sample and
// bit pool.
func (p *PRNG) Seed(s uint32) {
	p.eng.seed(s)
	p.haveGauss = false
	p.poolBits = 0
}

// SeedOrDefault seeds the PRNG with *seed when specified is true; otherwise
// it draws a seed from the OS entropy source.
func (p *PRNG) SeedOrDefault(specified bool, seed uint32) error {
	if specified {
		p.Seed(seed)
		return nil
	}
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return errors.Wrap(err, "prng: reading OS entropy")
	}
	p.Seed(binary.BigEndian.Uint32(buf[:]))
	return nil
}

// Max returns the engine's maximum raw output value.
func (p *PRNG) Max() uint32 { return p.eng.max() }

// Rand returns a uniformly distributed integer in [0, Max()].
func (p *PRNG) Rand() uint32 { return p.eng.next() }

// Rand32 returns a uniformly distributed 32-bit value, combining two draws
// when the engine's native range is narrower than a full 32 bits.
func (p *PRNG) Rand32() uint32 {
	if p.eng.max() == 0xffffffff {
		return p.eng.next()
	}
	hi := p.eng.next()
	lo := p.eng.next()
	return hi<<16 ^ lo
}

// Drand returns a uniformly distributed float64 in [0, 1).
func (p *PRNG) Drand() float64 {
	return float64(p.eng.next()) / (float64(p.eng.max()) + 1)
}

// Gauss returns a standard-normal sample via Box-Muller, caching the
// paired second sample for the next call. The cache is invalidated only
// by Seed/SeedOrDefault.
func (p *PRNG) Gauss() float64 {
	if p.haveGauss {
		p.haveGauss = false
		return p.cached
	}
	r1, r2 := p.gaussPair()
	p.cached = r2
	p.haveGauss = true
	return r1
}

// Gauss2 returns both standard-normal samples of a Box-Muller pair without
// touching the cache.
func (p *PRNG) Gauss2() (r1, r2 float64) {
	return p.gaussPair()
}

func (p *PRNG) gaussPair() (r1, r2 float64) {
	var u1, u2, s float64
	for {
		u1 = 2*p.Drand() - 1
		u2 = 2*p.Drand() - 1
		s = u1*u1 + u2*u2
		if s > 0 && s < 1 {
			break
		}
	}
	factor := math.Sqrt(-2 * math.Log(s) / s)
	return u1 * factor, u2 * factor
}

// Bits returns the next n bits (n <= 16) from a refillable 32-bit bit pool,
// refilling from Rand when the pool is exhausted. Valid only when the
// engine's Max is 2^31-1 or 2^32-1, matching the spec's documented
// restriction (a narrower engine wouldn't fill the pool's top bits
// uniformly).
func (p *PRNG) Bits(n int) (uint32, error) {
	if m := p.eng.max(); m != 0x7fffffff && m != 0xffffffff {
		return 0, errors.Errorf("prng: bit pool requires a full- or near-full-width engine, got max=%#x", m)
	}
	if p.poolBits < n {
		p.pool = p.eng.next()
		p.poolBits = 32
	}
	out := p.pool & ((1 << uint(n)) - 1)
	p.pool >>= uint(n)
	p.poolBits -= n
	return out, nil
}
