// Package archive reads zip archives held in memory. It backs the container
// loader's unzip capability; nothing here touches the filesystem.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"print-studio/internal/container"
)

// DefaultMaxEntryBytes caps how far a single entry may decompress. Oversized
// entries fail on read rather than silently truncating; 256 MiB comfortably
// covers the model parts of multi-million-triangle packages.
const DefaultMaxEntryBytes = 256 << 20

// Zip satisfies container.Unzipper over in-memory bytes.
type Zip struct {
	// MaxEntryBytes overrides the per-entry decompression cap. Zero uses
	// DefaultMaxEntryBytes.
	MaxEntryBytes uint64
}

// Open lists the file entries of the archive. Directory entries are skipped.
func (z Zip) Open(data []byte) ([]container.Entry, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	limit := z.MaxEntryBytes
	if limit == 0 {
		limit = DefaultMaxEntryBytes
	}
	entries := make([]container.Entry, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, &zipEntry{f: f, limit: limit})
	}
	return entries, nil
}

type zipEntry struct {
	f     *zip.File
	limit uint64
}

func (e *zipEntry) Name() string { return e.f.Name }

func (e *zipEntry) Size() uint64 { return e.f.UncompressedSize64 }

// Bytes decompresses the entry, enforcing the size cap against the actual
// stream rather than the header, which hostile archives lie about.
func (e *zipEntry) Bytes() ([]byte, error) {
	if e.f.UncompressedSize64 > e.limit {
		return nil, fmt.Errorf("unzip: %s: entry exceeds %d byte cap", e.f.Name, e.limit)
	}
	rc, err := e.f.Open()
	if err != nil {
		return nil, fmt.Errorf("unzip: %s: %w", e.f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(e.limit)+1))
	if err != nil {
		return nil, fmt.Errorf("unzip: %s: %w", e.f.Name, err)
	}
	if uint64(len(data)) > e.limit {
		return nil, fmt.Errorf("unzip: %s: entry exceeds %d byte cap", e.f.Name, e.limit)
	}
	return data, nil
}
