package wl

// SerialGenerator hands out the serials that identify events such as
// configure. Serials increase monotonically and wrap around at 2^32.
// The zero value starts at 1.
type SerialGenerator struct {
	last uint32
}

func (g *SerialGenerator) Next() uint32 {
	g.last++
	return g.last
}

// Last returns the most recently generated serial.
func (g *SerialGenerator) Last() uint32 {
	return g.last
}
