package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultMaxFrameSize bounds a single frame read by Reader.
const DefaultMaxFrameSize = 64 << 10

// Reader splits an SSE byte stream into raw frames.
type Reader struct {
	r   *bufio.Reader
	max int
	buf bytes.Buffer
}

// NewReader wraps r. maxFrame <= 0 selects DefaultMaxFrameSize.
func NewReader(r io.Reader, maxFrame int) *Reader {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Reader{r: bufio.NewReader(r), max: maxFrame}
}

// Next returns the next non-empty frame without its terminating blank line.
// A trailing frame not followed by a blank line is returned before io.EOF.
func (r *Reader) Next() ([]byte, error) {
	r.buf.Reset()
	partial := false
	for {
		line, err := r.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if r.buf.Len()+len(line) > r.max {
				return nil, ErrFrameTooLarge
			}
			r.buf.Write(line)
			partial = true
			continue
		}
		if len(line) > 0 {
			if !partial && isBlank(line) {
				if r.buf.Len() > 0 {
					return r.frame(), nil
				}
			} else {
				if r.buf.Len()+len(line) > r.max {
					return nil, ErrFrameTooLarge
				}
				r.buf.Write(line)
			}
		}
		partial = false
		if err != nil {
			if errors.Is(err, io.EOF) && r.buf.Len() > 0 {
				return r.frame(), nil
			}
			return nil, err
		}
	}
}

func (r *Reader) frame() []byte {
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	return out
}

func isBlank(line []byte) bool {
	return len(bytes.TrimRight(line, "\r\n")) == 0
}
