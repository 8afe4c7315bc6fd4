package record

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineScanner yields one record per physical line. Line boundaries follow
// bufio.ScanLines: a line ends at '\n' and a '\r' directly before it belongs
// to the boundary. A final line without a terminator is still a record. Blank
// lines are records too. Unlike bufio.Scanner there is no maximum line length.
type LineScanner struct {
	r    *bufio.Reader
	rec  string
	err  error
	done bool
}

// NewLineScanner reads from r. If r is a *bufio.Reader it is used directly.
func NewLineScanner(r io.Reader) *LineScanner {
	return &LineScanner{r: bufferedReader(r)}
}

// Scan advances to the next line.
func (s *LineScanner) Scan() bool {
	if s.done {
		return false
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
			s.rec = ""
			return false
		}
		if line == "" {
			s.rec = ""
			return false
		}
		s.rec = dropCR(line)
		return true
	}
	s.rec = dropCR(line[:len(line)-1])
	return true
}

// Record returns the most recent line without its terminator.
func (s *LineScanner) Record() string { return s.rec }

// Err returns the first non-EOF read error.
func (s *LineScanner) Err() error { return s.err }

func dropCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}
