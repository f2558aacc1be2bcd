// Package codec converts JSON-serializable values to and from the byte forms
// stored by the directory tier and by portable backup files.
//
// Content documents are stored as gzip-compressed JSON. Structured drawing
// documents are highly redundant, so the typical reduction is 60-80%.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"boardstore/internal/storeerr"

	"github.com/klauspost/compress/gzip"
)

// Compression levels accepted by NewCompressor.
const (
	DefaultCompression = gzip.DefaultCompression
	BestSpeed          = gzip.BestSpeed
	BestCompression    = gzip.BestCompression
	HuffmanOnly        = gzip.HuffmanOnly
)

// Compressor gzips canonical JSON at a fixed level. The zero value uses
// DefaultCompression.
type Compressor struct {
	level int
	set   bool
}

// NewCompressor returns a Compressor for the given gzip level.
func NewCompressor(level int) (*Compressor, error) {
	if level < HuffmanOnly || level > BestCompression {
		return nil, fmt.Errorf("invalid gzip level %d", level)
	}
	return &Compressor{level: level, set: true}, nil
}

func (c *Compressor) gzipLevel() int {
	if c == nil || !c.set {
		return DefaultCompression
	}
	return c.level
}

// Compress serializes v to JSON and gzips it.
func (c *Compressor) Compress(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return c.CompressRaw(raw)
}

// CompressRaw gzips an already serialized JSON document.
func (c *Compressor) CompressRaw(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.gzipLevel())
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

var defaultCompressor = &Compressor{}

// Compress uses the default compressor.
func Compress(v any) ([]byte, error) {
	return defaultCompressor.Compress(v)
}

// Decompress inflates buf and parses the JSON into a generic Go value.
// Any failure wraps storeerr.ErrCorruptData.
func Decompress(buf []byte) (any, error) {
	var v any
	if err := DecompressInto(buf, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecompressInto inflates buf and unmarshals the JSON into dst.
func DecompressInto(buf []byte, dst any) error {
	raw, err := DecompressRaw(buf)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", storeerr.ErrCorruptData, err)
	}
	return nil
}

// DecompressRaw inflates buf and returns the compacted JSON document.
func DecompressRaw(buf []byte) (json.RawMessage, error) {
	zr, err := gzip.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip header: %v", storeerr.ErrCorruptData, err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", storeerr.ErrCorruptData, err)
	}
	return Canonical(inflated)
}

// Canonical validates raw as JSON and returns its compact form.
func Canonical(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", storeerr.ErrCorruptData, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
