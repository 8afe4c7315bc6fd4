package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/source"
)

func validConfig() Config {
	return Config{Targets: []string{"a"}, Delimiter: DefaultDelimiter}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Count != DefaultCount || cfg.Backend != BackendFile || cfg.RenameSuffix != "_REP" || cfg.OutputDir != DefaultOutputDir {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want error
	}{
		{"no targets", func(c *Config) { c.Targets = []string{" ", ""} }, ErrNoSources},
		{"negative count", func(c *Config) { c.Count = -1 }, nil},
		{"empty delimiter", func(c *Config) { c.Delimiter = "" }, record.ErrEmptyDelimiter},
		{"unknown match", func(c *Config) { c.DelimiterMatch = "fuzzy" }, nil},
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon" }, source.ErrUnknownEncoding},
		{"unknown backend", func(c *Config) { c.Backend = "ftp" }, nil},
		{"negative concurrency", func(c *Config) { c.Concurrency = -2 }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mut(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, b ,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %q", got)
	}
	if SplitList("  ") != nil {
		t.Fatalf("blank input should give nil")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigFile_Formats(t *testing.T) {
	yamlPath := writeFile(t, "c.yaml", `
targets: [EAT001, EAT002]
count: 10
delimiter: "\\r\\n"
skipHeader: true
sourceTimeout: 2m
source:
  prefix: CSV
  ext: .csv
backend: s3
s3:
  bucket: iko
  forcePathStyle: true
`)
	jsonPath := writeFile(t, "c.json", `{"targets":["EAT001","EAT002"],"count":10,"delimiter":"\\r\\n","skipHeader":true,"sourceTimeout":"2m","source":{"prefix":"CSV","ext":".csv"},"backend":"s3","s3":{"bucket":"iko","forcePathStyle":true}}`)
	tomlPath := writeFile(t, "c.toml", `
targets = ["EAT001", "EAT002"]
count = 10
delimiter = '\r\n'
skipHeader = true
sourceTimeout = "2m"
backend = "s3"

[source]
prefix = "CSV"
ext = ".csv"

[s3]
bucket = "iko"
forcePathStyle = true
`)
	for _, p := range []string{yamlPath, jsonPath, tomlPath} {
		t.Run(filepath.Ext(p), func(t *testing.T) {
			fc, err := LoadConfigFile(p)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(fc.Targets) != 2 || fc.Count != 10 || fc.Source.Prefix != "CSV" || fc.Backend != "s3" {
				t.Fatalf("unexpected file config: %+v", fc)
			}
			if fc.Delimiter != `\r\n` {
				t.Fatalf("delimiter=%q, want escaped form", fc.Delimiter)
			}
			if fc.SkipHeader == nil || !*fc.SkipHeader {
				t.Fatalf("skipHeader not parsed")
			}
			if time.Duration(fc.SourceTimeout) != 2*time.Minute {
				t.Fatalf("timeout=%v", time.Duration(fc.SourceTimeout))
			}
			if fc.S3.Bucket != "iko" || !fc.S3.ForcePathStyle {
				t.Fatalf("s3=%+v", fc.S3)
			}
		})
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	skip := true
	var fc FileConfig
	fc.Targets = []string{"x"}
	fc.Count = 10
	fc.Delimiter = `\r\n`
	fc.SkipHeader = &skip
	fc.Output.Dir = "file-out"
	fc.Backend = "gcs"
	fc.GCS.Bucket = "g"

	cfg := Config{Targets: []string{"flag"}, Count: DefaultCount, Delimiter: DefaultDelimiter, OutputDir: "flag-out", Backend: DefaultBackend}
	ApplyFileConfig(&cfg, fc)
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "flag" {
		t.Fatalf("targets=%q, want flag value", cfg.Targets)
	}
	if cfg.Count != 10 || cfg.Delimiter != "\r\n" || !cfg.SkipHeader {
		t.Fatalf("defaults should yield to file: %+v", cfg)
	}
	if cfg.OutputDir != "flag-out" {
		t.Fatalf("output=%q, want explicit flag", cfg.OutputDir)
	}
	if cfg.Backend != "gcs" || cfg.GCS.Bucket != "g" {
		t.Fatalf("backend=%q gcs=%+v", cfg.Backend, cfg.GCS)
	}
}
