// Package report renders human-readable statistics for a completed backup
// run. Everything here is a pure function of its inputs; the CLI does the
// printing.
package report

import (
	"fmt"
	"strings"
	"time"
)

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// Duration unit rollovers.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// bitsPerMebibit converts a bit count to mebibits.
const bitsPerMebibit = 1024 * 1024

// bytesPerMegabyte converts a byte count to (decimal) megabytes.
const bytesPerMegabyte = 1000 * 1000

// Summary captures the measurable outcome of one run.
type Summary struct {
	Files int
	Bytes int64
	Start time.Time
	End   time.Time
}

// Elapsed returns the wall-clock duration of the run.
func (s *Summary) Elapsed() time.Duration {
	return s.End.Sub(s.Start)
}

// FriendlyDuration renders a duration in the largest unit under which the
// scaled value stays below the next unit's rollover: 45s reads as seconds,
// 125s as minutes, 7300s as hours, 200000s as days.
func FriendlyDuration(d time.Duration) string {
	secs := d.Seconds()

	switch {
	case secs < secondsPerMinute:
		return fmt.Sprintf("%.1f seconds", secs)
	case secs < secondsPerHour:
		return fmt.Sprintf("%.1f minutes", secs/secondsPerMinute)
	case secs < secondsPerDay:
		return fmt.Sprintf("%.1f hours", secs/secondsPerHour)
	default:
		return fmt.Sprintf("%.1f days", secs/secondsPerDay)
	}
}

// FriendlySize returns a human-readable size string (e.g. "1.2 MB").
func FriendlySize(bytes int64) string {
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

// Throughput renders transfer rate as mebibit/s and megabyte/s from the
// byte count and elapsed wall-clock time. A non-positive duration renders
// as zero rather than dividing by it.
func Throughput(bytes int64, d time.Duration) string {
	secs := d.Seconds()
	if secs <= 0 {
		return "0.0 Mib/s (0.0 MB/s)"
	}

	mebibits := float64(bytes) * 8 / bitsPerMebibit / secs
	megabytes := float64(bytes) / bytesPerMegabyte / secs

	return fmt.Sprintf("%.1f Mib/s (%.1f MB/s)", mebibits, megabytes)
}

// Render produces the final multi-line run report, including the shared
// link when one was published.
func Render(s *Summary, link string) string {
	var b strings.Builder

	elapsed := s.Elapsed()

	fmt.Fprintf(&b, "Backed up %d files (%s) in %s\n", s.Files, FriendlySize(s.Bytes), FriendlyDuration(elapsed))
	fmt.Fprintf(&b, "Throughput: %s\n", Throughput(s.Bytes, elapsed))

	if link != "" {
		fmt.Fprintf(&b, "Shared link: %s\n", link)
	}

	return b.String()
}
