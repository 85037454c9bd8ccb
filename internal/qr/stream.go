package qr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"stusave.app/internal/transfer"
)

// FrameSource is a camera-like stream of images. Next returns io.EOF when
// the stream ends. Close must unblock a pending Next.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

var _ transfer.Decoder = (*StreamDecoder)(nil)

// StreamDecoder scans frames until one holds a code. Frames without a
// readable code are skipped.
type StreamDecoder struct {
	src FrameSource

	mu        sync.Mutex
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewStreamDecoder(src FrameSource) *StreamDecoder {
	return &StreamDecoder{src: src}
}

func (d *StreamDecoder) Start(ctx context.Context, onText func(string), onErr func(error)) error {
	if err := d.src.Open(ctx); err != nil {
		return transfer.NewError(transfer.KindCameraUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	go d.run(ctx, onText, onErr)
	return nil
}

func (d *StreamDecoder) run(ctx context.Context, onText func(string), onErr func(error)) {
	defer d.closeSource()
	var last string
	for {
		frame, err := d.src.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			onErr(transfer.NewError(transfer.KindCameraUnavailable, errors.New("camera stream ended")))
			return
		}
		if err != nil {
			onErr(transfer.NewError(transfer.KindCameraUnavailable, err))
			return
		}

		text, err := DecodeImage(frame)
		if err != nil || text == last {
			continue
		}
		last = text
		onText(text)
	}
}

// Stop closes the source without waiting for the scan loop.
func (d *StreamDecoder) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	go d.closeSource()
}

func (d *StreamDecoder) closeSource() {
	d.closeOnce.Do(func() { _ = d.src.Close() })
}

// FileFrames replays image files as a frame stream, one file per frame.
type FileFrames struct {
	paths []string

	mu     sync.Mutex
	next   int
	closed bool
}

func NewFileFrames(paths ...string) *FileFrames {
	return &FileFrames{paths: paths}
}

func (f *FileFrames) Open(context.Context) error {
	if len(f.paths) == 0 {
		return errors.New("no frames")
	}
	for _, p := range f.paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("frame source: %w", err)
		}
	}
	return nil
}

func (f *FileFrames) Next(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	if f.closed || f.next >= len(f.paths) {
		f.mu.Unlock()
		return nil, io.EOF
	}
	path := f.paths[f.next]
	f.next++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readImage(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// unreadable frames are like blurry ones
		return image.NewGray(image.Rect(0, 0, 64, 64)), nil
	}
	return img, nil
}

func (f *FileFrames) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
