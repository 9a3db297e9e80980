package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// xzMagic is the file signature of an xz stream.
var xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

// Reader iterates a compressed tar archive. Compression is detected from
// the file content, so renamed backups still open.
type Reader struct {
	file *os.File
	gz   *gzip.Reader
	tr   *tar.Reader
}

// NewReader opens the archive at path.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	magic := make([]byte, len(xzMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read archive header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}

	r := &Reader{file: file}
	if string(magic) == string(xzMagic) {
		xr, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open xz stream: %w", err)
		}
		r.tr = tar.NewReader(xr)
		return r, nil
	}

	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	r.gz = gz
	r.tr = tar.NewReader(gz)
	return r, nil
}

// Close closes the archive.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// Visitor is called for each archive entry. Returning stop ends the
// iteration early; returning an error aborts it.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks the archive entries in order.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		stop, err := visitor(header, r.tr)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// ReadFile returns the content of the named entry.
func ReadFile(archivePath, name string) ([]byte, error) {
	r, err := NewReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var data []byte
	found := false
	err = r.Iterate(func(header *tar.Header, content io.Reader) (bool, error) {
		if header.Name != name {
			return false, nil
		}
		var readErr error
		data, readErr = io.ReadAll(content)
		found = true
		return true, readErr
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	return data, nil
}
