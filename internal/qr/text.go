package qr

import (
	"context"
	"strings"
	"sync"

	"stusave.app/internal/transfer"
)

var _ transfer.Decoder = (*TextDecoder)(nil)

// TextDecoder hands over text that was already read, such as a link pasted
// by the user.
type TextDecoder struct {
	text string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTextDecoder(text string) *TextDecoder {
	return &TextDecoder{text: text}
}

func (d *TextDecoder) Start(ctx context.Context, onText func(string), _ func(error)) error {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		if ctx.Err() == nil {
			onText(d.text)
		}
	}()
	return nil
}

func (d *TextDecoder) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// ForSource picks a decoder for what the user typed: a link is taken as
// already decoded, anything else is treated as an image path.
func ForSource(source string) transfer.Decoder {
	s := strings.TrimSpace(source)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewTextDecoder(s)
	}
	return NewImageDecoder(s)
}
