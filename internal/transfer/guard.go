package transfer

import "sync/atomic"

const (
	guardIdle int32 = iota
	guardInFlight
	guardReleasing
)

// inFlightGuard admits one redemption at a time per scan session. Once the
// session is torn down the guard stays in releasing and admits nothing.
type inFlightGuard struct {
	state atomic.Int32
}

func (g *inFlightGuard) tryAcquire() bool {
	return g.state.CompareAndSwap(guardIdle, guardInFlight)
}

// release lets the next decode result through.
func (g *inFlightGuard) release() {
	g.state.CompareAndSwap(guardInFlight, guardIdle)
}

func (g *inFlightGuard) retire() {
	g.state.Store(guardReleasing)
}

func (g *inFlightGuard) idle() bool {
	return g.state.Load() == guardIdle
}
