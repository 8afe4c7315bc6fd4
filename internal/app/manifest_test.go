package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/headtail/internal/record"
	"github.com/hyperifyio/headtail/internal/sink"
)

func TestBuildManifestEntries(t *testing.T) {
	reqs := []Request{
		{Name: "a", Display: "a", Key: "p/a.csv", Mode: record.ModeLine},
		{Name: "b", Display: "b_REP", Key: "p/b_REP.csv", Mode: record.ModeDelimiter},
	}
	outcomes := []Outcome{
		{Name: "a", Display: "a", OK: true, Records: 4, Scanned: 9, Dest: "out/a.csv", SHA256: "abcd"},
		{Name: "b", Display: "b_REP", Err: errors.New("source not found: p/b_REP.csv")},
	}
	entries := buildManifestEntries(reqs, outcomes)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries; got %d", len(entries))
	}
	if entries[0].Index != 1 || entries[0].Key != "p/a.csv" || entries[0].Mode != "line" || !entries[0].OK {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].OK || entries[1].Error == "" || entries[1].Mode != "delimiter" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestWriteManifest_RoundTripsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.manifest.json")
	meta := manifestMeta{
		RunID:      newRunID(),
		Version:    "1.2.3",
		Backend:    BackendFile,
		Count:      2,
		Attempted:  1,
		Succeeded:  1,
		StartedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 1, 12, 0, 1, 0, time.UTC),
	}
	entries := []manifestEntry{{Index: 1, Source: "a", OK: true, Records: 2}}
	if err := writeManifest(context.Background(), sink.FileSink{}, path, meta, entries); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "}\n") {
		t.Fatalf("manifest should end with a newline")
	}
	var got struct {
		Meta    manifestMeta    `json:"meta"`
		Sources []manifestEntry `json:"sources"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, err := uuid.Parse(got.Meta.RunID); err != nil {
		t.Fatalf("run id %q is not a UUID: %v", got.Meta.RunID, err)
	}
	if len(got.Sources) != 1 || got.Sources[0].Source != "a" {
		t.Fatalf("sources=%+v", got.Sources)
	}
}
