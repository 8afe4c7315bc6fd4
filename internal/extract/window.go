package extract

// Window is a fixed-capacity FIFO that keeps the most recent records. Push is
// O(1). Storage grows with the number of pushes up to the capacity, so short
// streams do not pay for a large window.
type Window struct {
	buf   []string
	limit int
	start int
}

// NewWindow returns an empty window holding at most capacity records.
// A capacity below one is treated as one.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{limit: capacity}
}

// Push appends s, evicting the oldest record when the window is full. It
// reports whether an eviction happened.
func (w *Window) Push(s string) bool {
	if len(w.buf) < w.limit {
		w.buf = append(w.buf, s)
		return false
	}
	w.buf[w.start] = s
	w.start++
	if w.start == w.limit {
		w.start = 0
	}
	return true
}

// Len returns the number of records held.
func (w *Window) Len() int { return len(w.buf) }

// Slice returns the held records oldest first. The result is a fresh slice.
func (w *Window) Slice() []string {
	if len(w.buf) == 0 {
		return nil
	}
	out := make([]string, 0, len(w.buf))
	out = append(out, w.buf[w.start:]...)
	return append(out, w.buf[:w.start]...)
}
