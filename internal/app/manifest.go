package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/headtail/internal/sink"
)

// manifestEntry is a compact record of a single source of the run.
type manifestEntry struct {
	Index   int    `json:"index"`
	Source  string `json:"source"`
	Display string `json:"display"`
	Key     string `json:"key"`
	Mode    string `json:"mode"`
	OK      bool   `json:"ok"`
	Records int    `json:"records"`
	Scanned int    `json:"scanned"`
	Output  string `json:"output,omitempty"`
	Bytes   int64  `json:"bytes,omitempty"`
	SHA256  string `json:"sha256,omitempty"`
	Error   string `json:"error,omitempty"`
}

// manifestMeta captures high-level run details that aid reproducibility.
type manifestMeta struct {
	RunID      string    `json:"run_id"`
	Version    string    `json:"version"`
	Commit     string    `json:"commit"`
	Backend    string    `json:"backend"`
	Count      int       `json:"count"`
	Delimiter  string    `json:"delimiter"`
	Match      string    `json:"match"`
	SkipHeader bool      `json:"skip_header"`
	Encoding   string    `json:"encoding"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newRunID() string { return uuid.NewString() }

func buildManifestEntries(reqs []Request, outcomes []Outcome) []manifestEntry {
	out := make([]manifestEntry, 0, len(outcomes))
	for i, o := range outcomes {
		e := manifestEntry{
			Index:   i + 1,
			Source:  o.Name,
			Display: o.Display,
			OK:      o.OK,
			Records: o.Records,
			Scanned: o.Scanned,
			Output:  o.Dest,
			Bytes:   o.Bytes,
			SHA256:  o.SHA256,
		}
		if i < len(reqs) {
			e.Key = reqs[i].Key
			e.Mode = reqs[i].Mode.String()
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		out = append(out, e)
	}
	return out
}

// marshalManifestJSON encodes a machine-readable run manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta    manifestMeta    `json:"meta"`
		Sources []manifestEntry `json:"sources"`
	}{Meta: meta, Sources: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// writeManifest replaces path with the manifest document.
func writeManifest(ctx context.Context, s sink.Sink, path string, meta manifestMeta, entries []manifestEntry) error {
	b, err := marshalManifestJSON(meta, entries)
	if err != nil {
		return err
	}
	_, err = s.Write(ctx, path, []string{string(b)})
	return err
}
