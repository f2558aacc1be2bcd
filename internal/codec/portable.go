package codec

import (
	"bytes"
	"fmt"
	"io"

	"boardstore/internal/storeerr"

	"github.com/spf13/afero"
)

// PortableContentType is the MIME type of an exported backup blob.
const PortableContentType = "application/octet-stream"

// Blob is a standalone compressed backup of one value, independent of any
// storage key.
type Blob struct {
	Data        []byte
	ContentType string
}

// Reader returns a fresh reader over the blob bytes.
func (b *Blob) Reader() io.Reader {
	return bytes.NewReader(b.Data)
}

// WriteTo writes the blob bytes to w.
func (b *Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Data)
	return int64(n), err
}

// Len returns the compressed size.
func (b *Blob) Len() int {
	return len(b.Data)
}

// CreatePortableBlob compresses v for manual export.
func CreatePortableBlob(v any) (*Blob, error) {
	data, err := Compress(v)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data, ContentType: PortableContentType}, nil
}

// ReadPortableBlob reads a backup from a file-like source.
func ReadPortableBlob(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read portable blob: %w", err)
	}
	return ReadPortableBytes(data)
}

// ReadPortableBytes reads a backup from an in-memory buffer.
func ReadPortableBytes(buf []byte) (any, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty portable blob", storeerr.ErrCorruptData)
	}
	return Decompress(buf)
}

// ReadPortableFile reads a backup file through fs.
func ReadPortableFile(fs afero.Fs, path string) (any, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portable file: %w", storeerr.Classify(err))
	}
	defer f.Close()
	return ReadPortableBlob(f)
}
