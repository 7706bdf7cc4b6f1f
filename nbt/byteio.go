package nbt

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/klauspost/pgzip"

	"github.com/bramblewood/mcworld/mcerr"
)

// ReadBE returns an unsigned integer decoded from the first n bytes of src in
// big-endian order. n must be one of 1, 2, 3, 4, 8.
func ReadBE(src []byte, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(src[i])
	}
	return v
}

// WriteBE writes the low n bytes of v into dst in big-endian order. n must be
// one of 1, 2, 3, 4, 8.
func WriteBE(dst []byte, v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

// SwapInPlace reverses the first n bytes of buf.
func SwapInPlace(buf []byte, n int) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}

// CompressionMode selects the wrapper inflate/deflate uses.
type CompressionMode int

const (
	ModeZlib CompressionMode = iota
	ModeGzip
)

// Inflate decompresses src (compressed under mode) and returns the
// decompressed bytes.
func Inflate(src []byte, mode CompressionMode) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch mode {
	case ModeZlib:
		r, err = zlib.NewReader(bytes.NewReader(src))
	case ModeGzip:
		r, err = pgzip.NewReader(bytes.NewReader(src))
	default:
		return nil, mcerr.New(mcerr.Decompress, "unknown compression mode %d", mode)
	}
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Decompress, err, "open decompressor")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.Decompress, err, "read decompressed stream")
	}
	return out, nil
}

// Deflate compresses src under mode.
func Deflate(src []byte, mode CompressionMode) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch mode {
	case ModeZlib:
		w = zlib.NewWriter(&buf)
	case ModeGzip:
		// klauspost/pgzip, mirroring distr1-distri's "zw := pgzip.NewWriter(out)".
		w = pgzip.NewWriter(&buf)
	default:
		return nil, mcerr.New(mcerr.Compress, "unknown compression mode %d", mode)
	}
	if _, err := w.Write(src); err != nil {
		return nil, mcerr.Wrap(mcerr.Compress, err, "write to compressor")
	}
	if err := w.Close(); err != nil {
		return nil, mcerr.Wrap(mcerr.Compress, err, "close compressor")
	}
	return buf.Bytes(), nil
}
