// Package extract selects the first and last K records of a record stream in
// a single pass with memory bounded by K.
package extract

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned for a window size below one.
var ErrInvalidWindow = errors.New("extract: window size must be at least 1")

// Records is the input side of HeadTail. record.Scanner satisfies it.
type Records interface {
	Scan() bool
	Record() string
	Err() error
}

// Result is the sample taken from one stream.
type Result struct {
	// Head holds the first min(K, N) records in stream order.
	Head []string
	// Tail holds up to K records that follow Head, oldest first. It never
	// shares a stream position with Head.
	Tail []string
	// Scanned is N, the number of records consumed.
	Scanned int
}

// Records returns Head followed by Tail.
func (r Result) Records() []string {
	out := make([]string, 0, len(r.Head)+len(r.Tail))
	out = append(out, r.Head...)
	return append(out, r.Tail...)
}

// Len is len(Head) + len(Tail).
func (r Result) Len() int { return len(r.Head) + len(r.Tail) }

// HeadTail consumes src once. Phase one fills Head until it holds k records
// or src is exhausted. Phase two pushes every remaining record into a window
// of capacity k, evicting the oldest when full. On a read error the partial
// result is discarded and the error returned.
func HeadTail(src Records, k int) (Result, error) {
	if k < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidWindow, k)
	}
	var res Result
	for len(res.Head) < k && src.Scan() {
		res.Head = append(res.Head, src.Record())
		res.Scanned++
	}
	if len(res.Head) == k {
		w := NewWindow(k)
		for src.Scan() {
			w.Push(src.Record())
			res.Scanned++
		}
		res.Tail = w.Slice()
	}
	if err := src.Err(); err != nil {
		return Result{}, fmt.Errorf("read records: %w", err)
	}
	return res, nil
}
