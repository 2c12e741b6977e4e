package prng

// lcg implements a simple linear congruential engine, standing in for the
// system `rand`/`random` alternate engines the spec calls for: same
// interface as the Mersenne Twister engine, a smaller period, and a
// different maximum output.
type lcg struct {
	state uint64
}

// lcgMax matches the traditional POSIX rand() range, 2^31-1.
const lcgMax = 0x7fffffff

func newLCG(seed uint32) *lcg {
	l := &lcg{}
	l.seed(seed)
	return l
}

func (l *lcg) seed(seed uint32) {
	l.state = uint64(seed)
}

func (l *lcg) next() uint32 {
	// Numerical Recipes constants, truncated to the low 31 bits so the
	// engine's maximum matches lcgMax.
	l.state = (l.state*1664525 + 1013904223) & 0xffffffff
	return uint32(l.state) & lcgMax
}

func (l *lcg) max() uint32 { return lcgMax }
