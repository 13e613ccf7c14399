package copier

import (
	"fmt"
	"io"
)

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeTB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(sizeTB))
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// WriteReport writes the human-readable run report: totals first, then the
// failed paths with reasons, if any. It is printed on every finished run,
// including runs with failures.
func (s *Summary) WriteReport(w io.Writer) {
	if s.Failed == 0 {
		fmt.Fprintf(w, "Copied %d of %d files (%s), no failures\n",
			s.Copied, s.Discovered, formatSize(s.BytesCopied))
		return
	}

	fmt.Fprintf(w, "Finished with %d failures: %d of %d files copied (%s)\n",
		s.Failed, s.Copied, s.Discovered, formatSize(s.BytesCopied))
	fmt.Fprintln(w, "Failed:")

	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Reason)
	}
}
