// Package record splits a forward-only text stream into logical records.
//
// Two tokenizers are provided. LineScanner trusts the line primitive of
// bufio.Reader: one physical line is one record. DelimiterScanner splits on an
// explicit, possibly multi-character delimiter and is used for sources whose
// rows may contain bare line breaks or mixed newline styles. Both follow the
// bufio.Scanner calling convention: call Scan until it returns false, then
// check Err.
package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Scanner yields records lazily. A Scanner is finite and cannot be restarted.
type Scanner interface {
	Scan() bool
	Record() string
	Err() error
}

// Mode selects a tokenizer.
type Mode int

const (
	// ModeLine treats each physical line as a record.
	ModeLine Mode = iota
	// ModeDelimiter splits on an explicit delimiter string.
	ModeDelimiter
)

func (m Mode) String() string {
	switch m {
	case ModeLine:
		return "line"
	case ModeDelimiter:
		return "delimiter"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "line" or "delimiter" (case-insensitive). Empty means line.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ModeLine, nil
	case "delimiter", "delim", "csv":
		return ModeDelimiter, nil
	}
	return ModeLine, fmt.Errorf("unknown record mode %q", s)
}

// Options configure New.
type Options struct {
	// Delimiter is required for ModeDelimiter.
	Delimiter string
	// Match selects the delimiter matching strategy.
	Match Match
}

// New returns the tokenizer for mode reading from r.
func New(r io.Reader, mode Mode, opts Options) (Scanner, error) {
	switch mode {
	case ModeLine:
		return NewLineScanner(r), nil
	case ModeDelimiter:
		return NewDelimiterScanner(r, opts.Delimiter, opts.Match)
	}
	return nil, fmt.Errorf("unknown record mode %v", mode)
}

// SkipLine consumes input up to and including the next '\n'. Reaching the end
// of input is not an error. The caller must keep reading from the same
// bufio.Reader so buffered bytes are not lost.
func SkipLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n", `\t`, "\t")

// Unescape decodes the escape sequences \n, \r, \t and \\ so delimiters can
// be written in flags and config files.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

func bufferedReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReaderSize(r, 64*1024)
}
