// Package qr renders share links as QR codes and reads them back from images.
package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultPNGSize is the edge length in pixels of PNG codes.
const DefaultPNGSize = 256

// PNG encodes content as a PNG image of size x size pixels.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultPNGSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// Terminal renders content with half-block characters for a terminal.
func Terminal(content string) (string, error) {
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return code.ToSmallString(false), nil
}
