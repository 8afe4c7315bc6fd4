package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	apppkg "github.com/hyperifyio/headtail/internal/app"
)

// Smoke test: run extracts a local source end to end.
func TestRun_FileBackend_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "store")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "T1.csv"), []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := apppkg.Config{
		Targets:   []string{"T1"},
		Count:     1,
		Delimiter: "\n",
		SourceExt: ".csv",
		OutputDir: filepath.Join(dir, "out"),
		FileRoot:  root,
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "T1.csv"))
	if err != nil || string(b) != "a\nc\n" {
		t.Fatalf("output=%q err=%v", string(b), err)
	}
}

// Failed sources surface as ErrSourcesFailed so the CLI exits with 2.
func TestRun_MissingSource_Error(t *testing.T) {
	dir := t.TempDir()
	cfg := apppkg.Config{
		Targets:   []string{"NOPE"},
		Delimiter: "\n",
		OutputDir: filepath.Join(dir, "out"),
		FileRoot:  dir,
	}
	err := run(context.Background(), cfg)
	if !errors.Is(err, apppkg.ErrSourcesFailed) {
		t.Fatalf("expected ErrSourcesFailed, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code=%d, want 2", exitCode(err))
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != 0 {
		t.Fatalf("nil should exit 0")
	}
	if exitCode(fmt.Errorf("init app: %w", apppkg.ErrNoSources)) != 1 {
		t.Fatalf("fatal config error should exit 1")
	}
}

func TestParseConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "headtail.yaml")
	content := "targets: [FILE1]\ncount: 10\noutput:\n  dir: file-out\nbackend: s3\ns3:\n  bucket: from-file\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEADTAIL_COUNT", "20")
	t.Setenv("HEADTAIL_OUTPUT_DIR", "")
	t.Setenv("HEADTAIL_TARGETS", "")
	t.Setenv("HEADTAIL_BACKEND", "")

	cfg, _, err := parseConfig([]string{
		"-config", cfgPath,
		"-env", "",
		"-output", "flag-out",
		"-delimiter", `\r\n`,
	}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "FILE1" {
		t.Fatalf("targets=%q, want from file", cfg.Targets)
	}
	if cfg.Count != 20 {
		t.Fatalf("count=%d, want env to beat file", cfg.Count)
	}
	if cfg.OutputDir != "flag-out" {
		t.Fatalf("output=%q, want flag to beat file", cfg.OutputDir)
	}
	if cfg.Delimiter != "\r\n" {
		t.Fatalf("delimiter=%q, want decoded CRLF", cfg.Delimiter)
	}
	if cfg.Backend != "s3" || cfg.S3.Bucket != "from-file" {
		t.Fatalf("backend=%q bucket=%q", cfg.Backend, cfg.S3.Bucket)
	}
}

func TestParseConfig_BadFlag(t *testing.T) {
	if _, _, err := parseConfig([]string{"-count", "many"}, io.Discard); err == nil {
		t.Fatalf("expected parse error")
	}
}
