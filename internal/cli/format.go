package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fpang/civic-certificate/internal/region"
	"github.com/fpang/civic-certificate/internal/report"
)

// FormatDuration formats d as milliseconds below a second, else seconds
// with one decimal.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// PrintSummary writes a human-readable description of a finished report.
func PrintSummary(w io.Writer, rep report.IssueReport, out string) {
	fmt.Fprintf(w, "Certificate %s\n", rep.ID)
	fmt.Fprintf(w, "  Issue:    %s\n", rep.IssueType)
	if rep.Location != nil {
		fmt.Fprintf(w, "  Address:  %s\n", rep.Location.Address)
		fmt.Fprintf(w, "  Position: %s\n", report.CoordinatesToDMS(rep.Location.Latitude, rep.Location.Longitude))
	}
	if rep.Region != "" {
		fmt.Fprintf(w, "  Region:   %s\n", rep.Region)
	}
	if out != "" {
		fmt.Fprintf(w, "  Saved to: %s\n", out)
	}
}

// PrintMatch writes a region matcher result.
func PrintMatch(w io.Writer, input string, res region.Result) {
	if !res.Usable() {
		fmt.Fprintf(w, "%q: no imagery (pass=%s)\n", input, res.Pass)
		return
	}
	fmt.Fprintf(w, "%q: %s -> %s (pass=%s, score=%.2f)\n", input, res.Entry.Name, res.Entry.Image, res.Pass, res.Score)
}
