// Package imaging decodes and encodes screenshot images to and from an
// in-memory RGBA8 pixel buffer.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
)

// ErrUndecodable marks image data that could not be parsed as PNG. Callers
// use it to tell a corrupt snapshot apart from a genuine visual difference.
var ErrUndecodable = errors.New("undecodable image data")

// Buffer is an RGBA8, row-major pixel buffer.
type Buffer struct {
	// RGBA is the underlying pixel data, bounds normalized to (0,0).
	RGBA *image.RGBA
}

// NewBuffer allocates a zeroed buffer of the given dimensions.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{RGBA: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.RGBA.Bounds().Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.RGBA.Bounds().Dy() }

// Pixel returns the RGBA channels at (x, y).
func (b *Buffer) Pixel(x, y int) (r, g, bl, a uint8) {
	i := y*b.RGBA.Stride + x*4
	p := b.RGBA.Pix
	return p[i], p[i+1], p[i+2], p[i+3]
}

// SetPixel writes the RGBA channels at (x, y).
func (b *Buffer) SetPixel(x, y int, r, g, bl, a uint8) {
	i := y*b.RGBA.Stride + x*4
	p := b.RGBA.Pix
	p[i], p[i+1], p[i+2], p[i+3] = r, g, bl, a
}

// Decode reads a PNG image into a Buffer. Pixel data is converted to RGBA8
// and bounds are normalized to start at (0,0).
func Decode(r io.Reader) (*Buffer, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &Buffer{RGBA: rgba}, nil
}

// DecodeBytes decodes PNG data from a byte slice.
func DecodeBytes(data []byte) (*Buffer, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile decodes a PNG file from disk.
func DecodeFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return buf, nil
}

// Encode writes a Buffer as PNG.
func Encode(w io.Writer, b *Buffer) error {
	if err := png.Encode(w, b.RGBA); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// EncodeBytes encodes a Buffer to PNG data in memory.
func EncodeBytes(b *Buffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeFile writes a Buffer as a PNG file.
func EncodeFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	return Encode(f, b)
}
