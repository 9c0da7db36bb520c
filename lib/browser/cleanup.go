package browser

import (
	"log/slog"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Close tears the browser down and removes its profile from disk.
// chrome occasionally leaves renderer processes behind after the
// allocator context dies, which keeps the profile directory locked,
// so any process still referencing it gets killed first. every step
// is best effort.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()

	s.killOrphans()

	err := os.RemoveAll(s.profileDir)
	if err != nil {
		slog.Warn("failed to remove chrome profile", "dir", s.profileDir, "err", err)
	}
}

func (s *Session) killOrphans() {
	procs, err := process.Processes()
	if err != nil {
		slog.Warn("failed to list processes for chrome cleanup", "err", err)
		return
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !strings.Contains(strings.ToLower(name), "chrome") {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || !strings.Contains(cmdline, s.profileDir) {
			continue
		}

		err = p.Kill()
		if err != nil {
			slog.Warn("failed to kill orphaned chrome process", "pid", p.Pid, "err", err)
			continue
		}
		slog.Info("killed orphaned chrome process", "pid", p.Pid)
	}
}
