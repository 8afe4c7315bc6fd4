package app

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/hyperifyio/headtail/internal/record"
)

// Request describes the extraction of one source. It is a value built once
// from Config and never modified afterwards.
type Request struct {
	// Name is the source name as configured.
	Name string
	// Display is Name after the rename suffix was applied. Key and Dest are
	// derived from it.
	Display    string
	K          int
	Mode       record.Mode
	Delimiter  string
	Match      record.Match
	Key        string
	Dest       string
	Encoding   string
	SkipHeader bool
}

// BuildRequests expands cfg into one request per target, in target order.
// cfg must have been validated.
func BuildRequests(cfg Config) []Request {
	match, _ := record.ParseMatch(cfg.DelimiterMatch)
	out := make([]Request, 0, len(cfg.Targets))
	for _, name := range cfg.Targets {
		display := displayName(cfg, name)
		mode := record.ModeLine
		if contains(cfg.DelimiterTargets, name) || contains(cfg.DelimiterTargets, display) {
			mode = record.ModeDelimiter
		}
		out = append(out, Request{
			Name:       name,
			Display:    display,
			K:          cfg.Count,
			Mode:       mode,
			Delimiter:  cfg.Delimiter,
			Match:      match,
			Key:        objectKey(cfg.SourcePrefix, display, cfg.SourceExt),
			Dest:       destinationPath(cfg.OutputDir, display, cfg.SourceExt),
			Encoding:   cfg.Encoding,
			SkipHeader: cfg.SkipHeader,
		})
	}
	return out
}

func displayName(cfg Config, name string) string {
	if contains(cfg.RenameTargets, name) {
		return name + cfg.RenameSuffix
	}
	return name
}

// objectKey joins prefix and name+ext with a single '/'. An empty prefix
// yields the bare file name.
func objectKey(prefix, name, ext string) string {
	file := name + ext
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// destinationPath keeps only the final element of name+ext so a source name
// containing separators cannot leave dir.
func destinationPath(dir, name, ext string) string {
	base := filepath.Base(filepath.FromSlash(name + ext))
	return filepath.Join(dir, base)
}
