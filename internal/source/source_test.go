package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestFileProvider(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "data", "a.csv"), []byte("h\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := FileProvider{Root: root}

	rc, err := p.Open(context.Background(), "data/a.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "h\n1\n" {
		t.Fatalf("body=%q", string(b))
	}

	if _, err := p.Open(context.Background(), "data/none.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err=%v, want ErrNotFound", err)
	}
	if _, err := p.Open(context.Background(), "data"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("directory err=%v, want ErrNotFound", err)
	}
	if _, err := p.Open(context.Background(), "../etc/passwd"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("escape err=%v, want rejection", err)
	}
}

func TestContextReader_StopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ContextReader(ctx, io.NopCloser(strings.NewReader("abcdef")))
	buf := make([]byte, 2)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("read before cancel: %v", err)
	}
	cancel()
	if _, err := r.Read(buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestRetry_RetriesTransientFailures(t *testing.T) {
	var calls int32
	p := ProviderFunc(func(ctx context.Context, key string) (io.ReadCloser, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("connection reset")
		}
		return io.NopCloser(strings.NewReader("ok")), nil
	})
	r := &Retry{Provider: p, MaxAttempts: 3, InitialInterval: time.Millisecond}
	rc, err := r.Open(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = rc.Close()
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	p := ProviderFunc(func(ctx context.Context, key string) (io.ReadCloser, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	})
	r := &Retry{Provider: p, MaxAttempts: 2, InitialInterval: time.Millisecond}
	if _, err := r.Open(context.Background(), "k"); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}
}

func TestRetry_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	p := ProviderFunc(func(ctx context.Context, key string) (io.ReadCloser, error) {
		atomic.AddInt32(&calls, 1)
		return nil, notFound(key, nil)
	})
	r := &Retry{Provider: p, MaxAttempts: 5, InitialInterval: time.Millisecond}
	_, err := r.Open(context.Background(), "k")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF-16", "utf-16be", "shift_jis", "EUC-JP", "latin1", "windows-1252", "gbk"} {
		if _, err := LookupEncoding(name); err != nil {
			t.Fatalf("LookupEncoding(%q): %v", name, err)
		}
	}
	if _, err := LookupEncoding("klingon"); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("err=%v, want ErrUnknownEncoding", err)
	}
}

func TestDecode_StripsUTF8BOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("h\n1\n")...)
	enc, _ := LookupEncoding("")
	b, err := io.ReadAll(Decode(bytes.NewReader(in), enc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(b) != "h\n1\n" {
		t.Fatalf("got %q", string(b))
	}
}

func TestDecode_ShiftJIS(t *testing.T) {
	want := "名前\n東京\n"
	sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	enc, _ := LookupEncoding("sjis")
	b, err := io.ReadAll(Decode(strings.NewReader(sjis), enc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(b) != want {
		t.Fatalf("got %q, want %q", string(b), want)
	}
}

func TestDecode_UTF16WithBOM(t *testing.T) {
	// "a\n" little endian with BOM
	in := []byte{0xFF, 0xFE, 'a', 0, '\n', 0}
	enc, _ := LookupEncoding("utf-8")
	b, err := io.ReadAll(Decode(bytes.NewReader(in), enc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(b) != "a\n" {
		t.Fatalf("got %q", string(b))
	}
}
