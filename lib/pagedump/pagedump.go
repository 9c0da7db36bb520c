package pagedump

import (
	"log/slog"
	"os"
	"path/filepath"
)

// The portal's markup contract is implicit and unversioned. When an
// extraction cascade misses, the first question is always "what did
// the page actually look like", so fetched pages can be dumped to a
// directory for inspection.

type Output struct {
	directory string
}

// New wipes and recreates `dir`. Dumps are per-run debugging
// artifacts, stale pages from a previous run only mislead.
func New(dir string) (Output, error) {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return Output{}, err
	}
	return Output{directory: dir}, nil
}

func (o Output) Write(id string, contents string) {
	if o.directory == "" {
		return
	}
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write page dump", "id", id, "err", err)
	}
}
