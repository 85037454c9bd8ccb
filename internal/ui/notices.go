package ui

import "stusave.app/internal/transfer"

// Notices is a transfer.Notifier that hands notices to the UI loop.
// A notice is dropped if the UI has not drained the previous ones.
type Notices struct {
	ch chan transfer.Notice
}

func NewNotices() *Notices {
	return &Notices{ch: make(chan transfer.Notice, 8)}
}

func (n *Notices) Notify(notice transfer.Notice) {
	select {
	case n.ch <- notice:
	default:
	}
}

func (n *Notices) C() <-chan transfer.Notice {
	return n.ch
}
