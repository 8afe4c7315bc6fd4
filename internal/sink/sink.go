// Package sink persists sampled records as newline-terminated text files.
package sink

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink writes a record sequence to a destination.
type Sink interface {
	Write(ctx context.Context, dest string, records []string) (Receipt, error)
}

// Receipt describes a completed write.
type Receipt struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// FileSink writes one record per line, replacing the destination atomically
// through a temporary file in the same directory. A failed write leaves any
// previous file in place.
type FileSink struct {
	// DirPerm is used when creating parent directories. Zero means 0o755.
	DirPerm os.FileMode
	// FilePerm is applied to the written file. Zero means 0o644.
	FilePerm os.FileMode
	// BufSize is the write buffer size. Zero means 64 KiB.
	BufSize int
}

// Write replaces dest with records, each followed by "\n".
func (s FileSink) Write(ctx context.Context, dest string, records []string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if strings.TrimSpace(dest) == "" {
		return Receipt{}, errors.New("sink: empty destination")
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, s.dirPerm()); err != nil {
		return Receipt{}, fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".headtail-*")
	if err != nil {
		return Receipt{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (Receipt, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return Receipt{}, err
	}

	h := sha256.New()
	cw := &countWriter{w: io.MultiWriter(tmp, h)}
	bw := bufio.NewWriterSize(cw, s.bufSize())
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}
		if _, err := bw.WriteString(rec); err != nil {
			return fail(fmt.Errorf("write %s: %w", dest, err))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("write %s: %w", dest, err))
		}
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("write %s: %w", dest, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", dest, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return Receipt{}, fmt.Errorf("close %s: %w", dest, err)
	}
	_ = os.Chmod(tmpPath, s.filePerm())
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return Receipt{}, fmt.Errorf("replace %s: %w", dest, err)
	}
	return Receipt{Path: dest, Bytes: cw.n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s FileSink) dirPerm() os.FileMode {
	if s.DirPerm == 0 {
		return 0o755
	}
	return s.DirPerm
}

func (s FileSink) filePerm() os.FileMode {
	if s.FilePerm == 0 {
		return 0o644
	}
	return s.FilePerm
}

func (s FileSink) bufSize() int {
	if s.BufSize <= 0 {
		return 64 * 1024
	}
	return s.BufSize
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
