package qr

import (
	"context"
	"fmt"
	"os"
	"sync"

	"stusave.app/internal/transfer"
)

var _ transfer.Decoder = (*ImageDecoder)(nil)

// ImageDecoder reads a single code from an image file, the way a user
// uploads a screenshot instead of pointing a camera.
type ImageDecoder struct {
	path string

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewImageDecoder(path string) *ImageDecoder {
	return &ImageDecoder{path: path}
}

func (d *ImageDecoder) Start(ctx context.Context, onText func(string), onErr func(error)) error {
	data, err := readImage(d.path)
	if err != nil {
		// no camera is involved: an unreadable file is a bad code image
		return transfer.NewError(transfer.KindInvalidQRPayload, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		defer cancel()
		text, err := DecodeBytes(data)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onErr(transfer.NewError(transfer.KindInvalidQRPayload, err))
			return
		}
		onText(text)
	}()
	return nil
}

func (d *ImageDecoder) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

func readImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
