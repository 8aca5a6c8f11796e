package cemetery

import (
	"fmt"
	"strings"
)

// ReportTombstones is how many recent tombstones a report lists.
const ReportTombstones = 10

// Report renders a plain-text summary suitable for a notification body.
func (s *Service) Report() (string, error) {
	stats, err := s.GetStats()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Code cemetery report\n\n")
	fmt.Fprintf(&b, "Assets: %d (alive: %d, dead: %d)\n", stats.TotalAssets, stats.AliveAssets, stats.DeadAssets)
	fmt.Fprintf(&b, "Tombstones: %d (resurrected: %d)\n", stats.TotalTombstones, stats.Resurrected)
	fmt.Fprintf(&b, "Last scan: %s\n", stats.LastScan)

	recent := s.ListRecentTombstones(ReportTombstones)
	if len(recent) > 0 {
		b.WriteString("\nRecently deceased:\n")
	}
	for _, t := range recent {
		marker := ""
		if t.Placeholder {
			marker = " (example)"
		}
		fmt.Fprintf(&b, "  %s  %s: %s%s\n", t.DiedAt.Format("2006-01-02"), t.Name, t.CauseOfDeath, marker)
	}
	return b.String(), nil
}
