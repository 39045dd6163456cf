// Package transfer lists the local archive set and pushes it to the FTPS
// endpoint in one batched curl invocation.
package transfer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Archive is one local backup blob. The set of archives for a run is a
// snapshot taken once at run start and treated as immutable afterward.
type Archive struct {
	// Name is the NFC-normalized base name used for the remote path.
	Name string
	// Path is the local filesystem path.
	Path string
	// Size in bytes, read at snapshot time.
	Size int64
}

// TotalBytes returns the exact sum of the archive sizes.
func TotalBytes(archives []Archive) int64 {
	var total int64
	for i := range archives {
		total += archives[i].Size
	}

	return total
}

// ListArchives snapshots the regular files directly under dir, sorted by
// name. Names are normalized to NFC so remote paths are stable regardless
// of how the local filesystem encodes them. Subdirectories and irregular
// entries are skipped. Permission failures keep their fs.ErrPermission
// identity so the caller can report them distinctly.
func ListArchives(dir string) ([]Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("transfer: insufficient privilege to read archive directory %s: %w", dir, err)
		}

		return nil, fmt.Errorf("transfer: reading archive directory %s: %w", dir, err)
	}

	archives := make([]Archive, 0, len(entries))

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("transfer: stat %s: %w", entry.Name(), err)
		}

		archives = append(archives, Archive{
			Name: norm.NFC.String(entry.Name()),
			Path: filepath.Join(dir, entry.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].Name < archives[j].Name })

	return archives, nil
}
