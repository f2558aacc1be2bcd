package codec

import (
	"encoding/json"
)

// Format is one on-disk encoding of a directory-tier value, identified by
// its file extension.
type Format interface {
	Name() string
	Ext() string
	Encode(raw json.RawMessage) ([]byte, error)
	Decode(data []byte) (json.RawMessage, error)
}

// Extensions used by the directory tier.
const (
	ExtCompressed = ".tom"
	ExtPlain      = ".json"
)

type gzipJSON struct {
	c *Compressor
}

// GzipJSON returns the compressed format (.tom) at the compressor's level.
func GzipJSON(c *Compressor) Format { return gzipJSON{c: c} }

func (gzipJSON) Name() string { return "gzip-json" }
func (gzipJSON) Ext() string  { return ExtCompressed }

func (f gzipJSON) Encode(raw json.RawMessage) ([]byte, error) {
	return f.c.CompressRaw(raw)
}

func (gzipJSON) Decode(data []byte) (json.RawMessage, error) {
	return DecompressRaw(data)
}

type plainJSON struct{}

// PlainJSON is the uncompressed format (.json).
var PlainJSON Format = plainJSON{}

func (plainJSON) Name() string { return "json" }
func (plainJSON) Ext() string  { return ExtPlain }

func (plainJSON) Encode(raw json.RawMessage) ([]byte, error) {
	return Canonical(raw)
}

func (plainJSON) Decode(data []byte) (json.RawMessage, error) {
	return Canonical(data)
}

// Chain lists the formats of one key kind, current version first, then each
// older version. A read tries them in order and stops at the first hit.
type Chain []Format

// Current returns the format new writes use.
func (c Chain) Current() Format {
	return c[0]
}

// Legacy reports whether index i is an older format that should be
// re-encoded with Current after a read.
func (c Chain) Legacy(i int) bool {
	return i > 0
}

// Exts returns every extension in the chain.
func (c Chain) Exts() []string {
	exts := make([]string, 0, len(c))
	for _, f := range c {
		exts = append(exts, f.Ext())
	}
	return exts
}

// ContentChain is the chain for Content keys: compressed, then legacy JSON.
func ContentChain(c *Compressor) Chain {
	return Chain{GzipJSON(c), PlainJSON}
}

// MetaChain is the chain for Meta keys.
func MetaChain() Chain {
	return Chain{PlainJSON}
}
