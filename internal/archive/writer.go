// Package archive reads and writes library backup archives. A backup is a
// tar archive, gzip- or xz-compressed by file extension, holding a
// manifest plus one JSON document per entity table.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Writer writes files into a compressed tar archive. The compression is
// chosen from the destination extension: .tar.xz uses xz, everything else
// gzip.
type Writer struct {
	file *os.File
	comp io.WriteCloser
	tw   *tar.Writer
	now  time.Time
}

// NewWriter creates the archive file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	var comp io.WriteCloser
	if strings.HasSuffix(strings.ToLower(path), ".tar.xz") {
		comp, err = xz.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
	} else {
		comp = gzip.NewWriter(file)
	}

	return &Writer{
		file: file,
		comp: comp,
		tw:   tar.NewWriter(comp),
		now:  time.Now(),
	}, nil
}

// WriteFile adds one file to the archive. Entries share the writer's
// creation time so repeated backups of identical data differ only in that
// one timestamp.
func (w *Writer) WriteFile(name string, data []byte) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: w.now,
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Close flushes and closes the tar, compression, and file layers in order.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.comp.Close()
		w.file.Close()
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := w.comp.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close compressor: %w", err)
	}
	return w.file.Close()
}
