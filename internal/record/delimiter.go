package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyDelimiter is returned when a delimiter scanner is built without a
// delimiter.
var ErrEmptyDelimiter = errors.New("record: delimiter must not be empty")

// Match selects how a partial delimiter match recovers from a mismatch.
type Match int

const (
	// MatchExact finds every delimiter occurrence, including one that starts
	// inside a partial match that later failed.
	MatchExact Match = iota
	// MatchLegacy drops the whole partial match on the first mismatched
	// character without re-examining it. For "ab", input "aab" is then not
	// split. Kept for byte compatibility with samples produced by the
	// previous extractor.
	MatchLegacy
)

func (m Match) String() string {
	if m == MatchLegacy {
		return "legacy"
	}
	return "exact"
}

// ParseMatch accepts "exact" or "legacy". Empty means exact.
func ParseMatch(s string) (Match, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MatchExact, nil
	case "legacy":
		return MatchLegacy, nil
	}
	return MatchExact, fmt.Errorf("unknown delimiter match %q", s)
}

// DelimiterScanner splits a character stream on an explicit delimiter.
//
// The stream is read one rune at a time. A token ends when the delimiter has
// been matched; the delimiter is not part of the token. At end of input any
// remainder is the last token. One trailing '\r' is removed from every token,
// and tokens that are then empty or whitespace-only are dropped without being
// reported.
type DelimiterScanner struct {
	r        *bufio.Reader
	delim    []rune
	delimLen int
	fail     []int
	match    Match

	acc     strings.Builder
	matched int

	rec     string
	err     error
	eof     bool
	skipped int
}

// NewDelimiterScanner reads from r and splits on delim.
func NewDelimiterScanner(r io.Reader, delim string, match Match) (*DelimiterScanner, error) {
	if delim == "" {
		return nil, ErrEmptyDelimiter
	}
	d := []rune(delim)
	return &DelimiterScanner{
		r:        bufferedReader(r),
		delim:    d,
		delimLen: len(delim),
		fail:     prefixTable(d),
		match:    match,
	}, nil
}

// Scan advances to the next non-blank record.
func (s *DelimiterScanner) Scan() bool {
	for {
		tok, ok := s.next()
		if !ok {
			s.rec = ""
			return false
		}
		tok = strings.TrimSuffix(tok, "\r")
		if strings.TrimSpace(tok) == "" {
			s.skipped++
			continue
		}
		s.rec = tok
		return true
	}
}

// Record returns the most recent record.
func (s *DelimiterScanner) Record() string { return s.rec }

// Err returns the first non-EOF read error.
func (s *DelimiterScanner) Err() error { return s.err }

// Skipped reports how many blank tokens were dropped so far.
func (s *DelimiterScanner) Skipped() int { return s.skipped }

func (s *DelimiterScanner) next() (string, bool) {
	if s.eof {
		return "", false
	}
	s.acc.Reset()
	s.matched = 0
	for {
		c, _, err := s.r.ReadRune()
		if err != nil {
			s.eof = true
			if !errors.Is(err, io.EOF) {
				s.err = err
				return "", false
			}
			if s.acc.Len() == 0 {
				return "", false
			}
			return s.acc.String(), true
		}
		s.acc.WriteRune(c)
		if s.step(c) {
			tok := s.acc.String()
			return tok[:len(tok)-s.delimLen], true
		}
	}
}

// step feeds c to the matcher and reports whether the delimiter is complete.
func (s *DelimiterScanner) step(c rune) bool {
	if s.match == MatchLegacy {
		if s.delim[s.matched] == c {
			s.matched++
		} else {
			s.matched = 0
		}
	} else {
		for s.matched > 0 && s.delim[s.matched] != c {
			s.matched = s.fail[s.matched-1]
		}
		if s.delim[s.matched] == c {
			s.matched++
		}
	}
	if s.matched == len(s.delim) {
		s.matched = 0
		return true
	}
	return false
}

// prefixTable returns, for each i, the length of the longest proper prefix of
// d[:i+1] that is also its suffix.
func prefixTable(d []rune) []int {
	t := make([]int, len(d))
	k := 0
	for i := 1; i < len(d); i++ {
		for k > 0 && d[i] != d[k] {
			k = t[k-1]
		}
		if d[i] == d[k] {
			k++
		}
		t[i] = k
	}
	return t
}
