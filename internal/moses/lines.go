package moses

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineScanner reads newline-terminated lines of any length. It has the
// Scan/Text/Err shape of bufio.Scanner without its token size limit. A
// trailing "\r" is dropped with the newline, and a final line without a
// newline is still returned.
type LineScanner struct {
	r    *bufio.Reader
	line string
	err  error
	done bool
}

func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{r: bufio.NewReader(r)}
}

// Scan advances to the next line. It returns false at end of input or on a
// read error.
func (s *LineScanner) Scan() bool {
	if s.done {
		return false
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
			return false
		}
		if line == "" {
			return false
		}
	}
	line = strings.TrimSuffix(line, "\n")
	s.line = strings.TrimSuffix(line, "\r")
	return true
}

func (s *LineScanner) Text() string {
	return s.line
}

// Err returns the first read error other than io.EOF.
func (s *LineScanner) Err() error {
	return s.err
}
