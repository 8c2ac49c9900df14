package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultMaxImageBytes caps an attached photo.
const DefaultMaxImageBytes = 10 << 20

var (
	ErrNoImage       = errors.New("no image provided")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// ReaderImage captures a photo from an upload stream.
type ReaderImage struct {
	R        io.Reader
	MaxBytes int64
}

// Capture reads the whole stream, refusing anything over MaxBytes.
func (c *ReaderImage) Capture(ctx context.Context) ([]byte, error) {
	if c.R == nil {
		return nil, ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	max := c.MaxBytes
	if max <= 0 {
		max = DefaultMaxImageBytes
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(c.R, max+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if n == 0 {
		return nil, ErrNoImage
	}
	if n > max {
		return nil, ErrImageTooLarge
	}
	return buf.Bytes(), nil
}

// FileImage captures a photo from disk, as an upload picked from the gallery.
type FileImage struct {
	Path     string
	MaxBytes int64
}

// Capture reads the file at Path.
func (c *FileImage) Capture(ctx context.Context) ([]byte, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return (&ReaderImage{R: f, MaxBytes: c.MaxBytes}).Capture(ctx)
}
