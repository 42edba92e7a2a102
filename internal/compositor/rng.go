package compositor

// lcg is a 32-bit linear congruential generator. The same seed always yields
// the same sequence on every platform.
type lcg struct {
	x uint32
}

func newLCG(seed int) *lcg {
	return &lcg{x: uint32(int64(seed))}
}

// next returns a value in [0, 1).
func (g *lcg) next() float64 {
	g.x = g.x*1664525 + 1013904223
	return float64(g.x) / 4294967296.0
}

func (g *lcg) jitter(base, spread float64) float64 {
	return base + (g.next()-0.5)*spread
}
