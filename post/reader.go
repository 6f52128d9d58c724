package post

import (
	"bufio"
	"errors"
	"io"
)

// ErrNothingToUnread is returned by UnreadLine when no line can be restored.
var ErrNothingToUnread = errors.New("post: no line to unread")

// LineReader reads a post file line by line. The total number of bytes it
// will ever read from the underlying reader is capped at MaxSize, and the
// most recently read line can be pushed back with UnreadLine.
type LineReader struct {
	br       *bufio.Reader
	last     string
	hasLast  bool
	unread   bool
	consumed int64
}

// NewLineReader wraps r. At most MaxSize bytes are read from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReader(io.LimitReader(r, MaxSize))}
}

// ReadLine returns the next line including its trailing newline, reading at
// most limit bytes. A longer line is split and its remainder is returned by
// the following call. At the end of the input ReadLine returns "", io.EOF.
func (r *LineReader) ReadLine(limit int) (string, error) {
	if r.unread {
		r.unread = false
		r.consumed += int64(len(r.last))
		return r.last, nil
	}
	var line []byte
	for len(line) < limit {
		c, err := r.br.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				break
			}
			r.hasLast = false
			return "", err
		}
		line = append(line, c)
		if c == '\n' {
			break
		}
	}
	r.last = string(line)
	r.hasLast = true
	r.consumed += int64(len(line))
	return r.last, nil
}

// UnreadLine moves the read position back to the start of the last line
// returned by ReadLine. Only one line can be unread at a time.
func (r *LineReader) UnreadLine() error {
	if !r.hasLast || r.unread {
		return ErrNothingToUnread
	}
	r.unread = true
	r.consumed -= int64(len(r.last))
	return nil
}

// Rest returns everything that has not been read yet, up to limit bytes.
func (r *LineReader) Rest(limit int64) (string, error) {
	var prefix string
	if r.unread {
		r.unread = false
		prefix = r.last
		if int64(len(prefix)) > limit {
			prefix = prefix[:limit]
		}
		limit -= int64(len(prefix))
	}
	b, err := io.ReadAll(io.LimitReader(r.br, limit))
	r.hasLast = false
	r.consumed += int64(len(prefix) + len(b))
	if err != nil {
		return prefix + string(b), err
	}
	return prefix + string(b), nil
}

// Offset is the number of bytes consumed so far.
func (r *LineReader) Offset() int64 {
	return r.consumed
}
