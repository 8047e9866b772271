// Package objcodec wraps zlib compression for git's loose objects and
// packfile records.
//
// Packfile records are back-to-back with no length prefix on the
// compressed payload, so Inflate reports how many compressed bytes it
// consumed off the stream: that's what lets the packfile reader seek to
// the next record without re-parsing anything.
package objcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrCodecCorrupt is returned when a zlib stream is malformed or
// truncated.
var ErrCodecCorrupt = errors.New("corrupt zlib stream")

// countingReader tracks how many bytes have been read off the
// underlying reader, letting Inflate report consumed bytes once the
// zlib stream's end is reached.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadByte makes countingReader an io.ByteReader, so the zlib reader
// reads from it directly instead of wrapping it in a read-ahead buffer
// that would consume (and count) bytes past the end of the stream.
func (c *countingReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, err
	}
	c.n++
	return b[0], nil
}

// Deflate zlib-compresses b and writes it to w.
func Deflate(w io.Writer, b []byte) error {
	zw := zlib.NewWriter(w)
	if _, err := zw.Write(b); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Inflate reads a zlib stream from r until completion and returns the
// decompressed data along with the number of compressed bytes consumed
// from r.
func Inflate(r io.Reader) (data []byte, consumed int64, err error) {
	cr := &countingReader{r: r}
	zr, err := zlib.NewReader(cr)
	if err != nil {
		if errors.Is(err, zlib.ErrHeader) || errors.Is(err, zlib.ErrChecksum) {
			return nil, 0, fmt.Errorf("%s: %w", err, ErrCodecCorrupt)
		}
		return nil, 0, err
	}
	defer func() {
		closeErr := zr.Close()
		if err == nil {
			err = closeErr
		}
	}()

	buf := bytes.Buffer{}
	if _, err = io.Copy(&buf, zr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum) {
			return nil, 0, fmt.Errorf("%s: %w", err, ErrCodecCorrupt)
		}
		return nil, 0, err
	}

	return buf.Bytes(), cr.n, nil
}
