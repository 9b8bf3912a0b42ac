// Package recio reads logical records from a raw line source. A logical
// record may span one or many physical lines; the boundary rule that
// decides where one record ends (quote balance, bracket balance,
// continuation block, markup close tag) is the Reader's Boundary kind.
package recio

import (
	"bufio"
	"io"
	"strings"
)

// Source wraps a raw byte stream as a physical-line reader with pushback.
// The only movement it ever assumes beyond "read the next line" is an
// optional rewind to the very start.
type Source struct {
	raw io.Reader
	r   *bufio.Reader

	pushed []string // LIFO of pushed-back texts, returned before new reads
	lineno int      // physical lines consumed so far
	eof    bool
}

// NewSource returns a Source reading physical lines from r.
func NewSource(r io.Reader) *Source {
	return &Source{raw: r, r: bufio.NewReader(r)}
}

// NewStringSource is a convenience for tests and in-memory inputs.
func NewStringSource(s string) *Source {
	return NewSource(strings.NewReader(s))
}

// ReadLine returns the next physical line with its terminator stripped.
// Pushed-back text is returned first, one pushback per call. At the end
// of input it returns io.EOF.
func (s *Source) ReadLine() (string, error) {
	if n := len(s.pushed); n > 0 {
		line := s.pushed[n-1]
		s.pushed = s.pushed[:n-1]
		return line, nil
	}
	if s.eof {
		return "", io.EOF
	}
	line, err := s.r.ReadString('\n')
	if err == io.EOF {
		s.eof = true
		if line == "" {
			return "", io.EOF
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	s.lineno++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// PushBack returns unconsumed text to the source; the next ReadLine will
// return it verbatim. Multiple pushbacks are returned in LIFO order.
func (s *Source) PushBack(text string) {
	s.pushed = append(s.pushed, text)
}

// Line reports the number of physical lines consumed so far. Pushed-back
// text does not move the count.
func (s *Source) Line() int { return s.lineno }

// Rewind repositions the source at its very beginning. It requires the
// underlying stream to be an io.Seeker; otherwise it reports
// ErrNotSeekable.
func (s *Source) Rewind() error {
	sk, ok := s.raw.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := sk.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.r = bufio.NewReader(s.raw)
	s.pushed = nil
	s.lineno = 0
	s.eof = false
	return nil
}

// Close closes the underlying stream when it is an io.Closer.
func (s *Source) Close() error {
	if c, ok := s.raw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
