package treehash

import (
	"fmt"
	"sync"
)

// Meter is the rendering side of progress accounting, the "external
// collaborator" spec.md §6 describes as a terminal progress-meter renderer.
// Redraw is called every time State changes; implementations decide how (or
// whether) to paint the line.
type Meter interface {
	Redraw(line string)
}

// NopMeter discards redraws. Used for piped/logged runs.
type NopMeter struct{}

// Redraw implements Meter.
func (NopMeter) Redraw(string) {}

// State is the progress accounting state of spec.md §3.4: running counts
// against totals fixed by a prescan. It is safe for concurrent use because
// the threaded hasher's single collector goroutine is its only writer, but
// a terminal meter implementation driven from another goroutine would read
// it under the same lock (spec.md §9's "mutable progress counters").
type State struct {
	mu sync.Mutex

	Files       uint64
	TotalFiles  uint64
	Octets      uint64
	TotalOctets uint64

	Meter Meter
}

// NewState creates progress State with fixed totals and an attached Meter.
// Passing a nil Meter installs NopMeter.
func NewState(totalFiles, totalOctets uint64, meter Meter) *State {
	if meter == nil {
		meter = NopMeter{}
	}
	return &State{TotalFiles: totalFiles, TotalOctets: totalOctets, Meter: meter}
}

// Prescan drives stream to completion once, counting files and summing size
// for every node matching NeedsHash, and returns totals for a fresh State
// (spec.md §4.5). The stream passed in must not be consumed again elsewhere
// — callers typically hand it a Memo.Stream() so the dispatch pass can
// replay the same sequence.
func Prescan(stream NodeStream) (totalFiles, totalOctets uint64, err error) {
	for {
		n, ok, e := stream.Next()
		if e != nil {
			return 0, 0, e
		}
		if !ok {
			return totalFiles, totalOctets, nil
		}
		if NeedsHash(n) {
			totalFiles++
			totalOctets += FileSize(n)
		}
	}
}

// Update records one hashed file's contribution to the running totals and
// triggers a meter redraw (spec.md §4.5). node must be the File node that
// was just hashed.
func (s *State) Update(node Node) {
	s.mu.Lock()
	s.Files++
	s.Octets += FileSize(node)
	files, totalFiles := s.Files, s.TotalFiles
	octets, totalOctets := s.Octets, s.TotalOctets
	meter := s.Meter
	s.mu.Unlock()

	meter.Redraw(formatProgressLine(files, totalFiles, octets, totalOctets))
}

func formatProgressLine(files, totalFiles, octets, totalOctets uint64) string {
	filePct := ratioPercent(files, totalFiles)
	octetPct := ratioPercent(octets, totalOctets)
	return fmt.Sprintf("  %d/%d (%5.1f%%) files, %s/%s (%5.1f%%) bytes",
		files, totalFiles, filePct,
		humanReadableBytes(octets), humanReadableBytes(totalOctets), octetPct)
}

func ratioPercent(n, total uint64) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(n) / float64(total) * 100.0
}
