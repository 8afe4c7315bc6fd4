package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider resolves keys below a local root directory. Keys use forward
// slashes and may not escape the root.
type FileProvider struct {
	Root string
}

// Open opens Root/key for reading.
func (p FileProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := filepath.FromSlash(strings.TrimLeft(key, "/"))
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("file source: key %q escapes root", key)
	}
	path := filepath.Join(p.Root, rel)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(key, nil)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, notFound(key, errors.New("is a directory"))
	}
	return ContextReader(ctx, f), nil
}
