package audit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrUnsupportedFile is returned for inputs that are neither .xml nor .zip.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Document is one raw CT-e waiting for extraction.
type Document struct {
	// Label identifies the document in logs and reports: the file name, or
	// the entry name for documents unpacked from an archive.
	Label string
	Data  []byte
}

// IsSupported reports whether path has an extension LoadFile understands.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".zip":
		return true
	}
	return false
}

// LoadFile reads an .xml file as one document, or every .xml entry of a .zip
// archive as one document each.
func LoadFile(path string) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return []Document{{Label: filepath.Base(path), Data: data}}, nil
	case ".zip":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs, err := ReadArchive(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

// ReadArchive unpacks every entry whose name ends in .xml, in archive order.
// Directories and other entries are skipped.
func ReadArchive(r io.ReaderAt, size int64) ([]Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", f.Name, err)
		}
		docs = append(docs, Document{Label: f.Name, Data: data})
	}
	return docs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
