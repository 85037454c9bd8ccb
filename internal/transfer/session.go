package transfer

import (
	"context"
	"sync"
)

// scanSession is one activation of a decoder. It owns the in-flight guard
// and stops the decoder exactly once.
type scanSession struct {
	decoder Decoder
	guard   inFlightGuard

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

func newScanSession(parent context.Context, dec Decoder) *scanSession {
	ctx, cancel := context.WithCancel(parent)
	return &scanSession{decoder: dec, ctx: ctx, cancel: cancel}
}

// stopDecoder releases the capture device but keeps the session context alive.
func (s *scanSession) stopDecoder() {
	s.stopOnce.Do(s.decoder.Stop)
}

// stop ends the session: no further decode results are admitted. A nil session is a no-op.
func (s *scanSession) stop() {
	if s == nil {
		return
	}
	s.guard.retire()
	s.cancel()
	s.stopDecoder()
}
