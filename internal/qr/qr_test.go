package qr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stusave.app/internal/transfer"
)

const shareURL = "https://stusave.example/app?id=k3x9qa"

func blankPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestPNGRoundTrip(t *testing.T) {
	data, err := PNG(shareURL, 0)
	require.NoError(t, err)

	text, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, shareURL, text)
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(shareURL)
	require.NoError(t, err)
	assert.Greater(t, len(bytes.Split([]byte(out), []byte("\n"))), 10)
}

func TestDecodeBytesRejectsNonImages(t *testing.T) {
	_, err := DecodeBytes([]byte(`{"id":"k3x9qa"}`))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = DecodeBytes(make([]byte, MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestDecodeBlankImage(t *testing.T) {
	_, err := DecodeBytes(blankPNG(t))
	assert.ErrorIs(t, err, ErrNoCode)
}

type results struct {
	texts chan string
	errs  chan error
}

func newResults() *results {
	return &results{texts: make(chan string, 8), errs: make(chan error, 8)}
}

func (r *results) onText(s string) { r.texts <- s }
func (r *results) onErr(err error) { r.errs <- err }

func TestImageDecoder(t *testing.T) {
	data, err := PNG(shareURL, 200)
	require.NoError(t, err)
	path := writeFile(t, "code.png", data)

	r := newResults()
	dec := NewImageDecoder(path)
	require.NoError(t, dec.Start(context.Background(), r.onText, r.onErr))

	select {
	case text := <-r.texts:
		assert.Equal(t, shareURL, text)
	case err := <-r.errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	dec.Stop()
}

func TestImageDecoderMissingFile(t *testing.T) {
	dec := NewImageDecoder(filepath.Join(t.TempDir(), "missing.png"))
	err := dec.Start(context.Background(), func(string) {}, func(error) {})
	assert.ErrorIs(t, err, transfer.ErrInvalidQRPayload)
	assert.NotErrorIs(t, err, transfer.ErrCameraUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImageDecoderNotAnImage(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("hello"))

	r := newResults()
	require.NoError(t, NewImageDecoder(path).Start(context.Background(), r.onText, r.onErr))

	select {
	case err := <-r.errs:
		assert.ErrorIs(t, err, transfer.ErrInvalidQRPayload)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
}

func TestStreamDecoderSkipsEmptyFrames(t *testing.T) {
	code, err := PNG(shareURL, 200)
	require.NoError(t, err)

	src := NewFileFrames(
		writeFile(t, "blank.png", blankPNG(t)),
		writeFile(t, "junk.png", []byte("not really a png")),
		writeFile(t, "code.png", code),
		writeFile(t, "again.png", code),
	)

	r := newResults()
	require.NoError(t, NewStreamDecoder(src).Start(context.Background(), r.onText, r.onErr))

	select {
	case text := <-r.texts:
		assert.Equal(t, shareURL, text)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}

	// the same code in consecutive frames is reported once, then the stream ends
	select {
	case err := <-r.errs:
		assert.ErrorIs(t, err, transfer.ErrCameraUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Empty(t, r.texts)
}

func TestStreamDecoderOpenFailure(t *testing.T) {
	dec := NewStreamDecoder(NewFileFrames())
	err := dec.Start(context.Background(), func(string) {}, func(error) {})
	assert.ErrorIs(t, err, transfer.ErrInvalidQRPayload)
	assert.NotErrorIs(t, err, transfer.ErrCameraUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// blockingSource never produces a frame until it is closed.
type blockingSource struct {
	closed chan struct{}
	closes atomic.Int32
}

func (b *blockingSource) Open(context.Context) error { return nil }

func (b *blockingSource) Next(ctx context.Context) (image.Image, error) {
	<-b.closed
	return nil, os.ErrClosed
}

func (b *blockingSource) Close() error {
	if b.closes.Add(1) == 1 {
		close(b.closed)
	}
	return nil
}

func TestStreamDecoderStopReleasesSource(t *testing.T) {
	src := &blockingSource{closed: make(chan struct{})}
	r := newResults()
	dec := NewStreamDecoder(src)
	require.NoError(t, dec.Start(context.Background(), r.onText, r.onErr))

	dec.Stop()
	dec.Stop()

	assert.Eventually(t, func() bool { return src.closes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return len(r.errs) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestFileFramesYieldUnreadableAsBlank(t *testing.T) {
	src := NewFileFrames(writeFile(t, "x.png", []byte("garbage")))
	require.NoError(t, src.Open(context.Background()))

	img, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, color.GrayModel, img.ColorModel())

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextDecoder(t *testing.T) {
	r := newResults()
	require.NoError(t, NewTextDecoder(shareURL).Start(context.Background(), r.onText, r.onErr))

	select {
	case text := <-r.texts:
		assert.Equal(t, shareURL, text)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestTextDecoderStoppedBeforeDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newResults()
	require.NoError(t, NewTextDecoder(shareURL).Start(ctx, r.onText, r.onErr))
	assert.Never(t, func() bool { return len(r.texts) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestForSource(t *testing.T) {
	assert.IsType(t, &TextDecoder{}, ForSource("  HTTPS://stusave.example/?id=abc123 "))
	assert.IsType(t, &ImageDecoder{}, ForSource("/tmp/code.png"))
}
