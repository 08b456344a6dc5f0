package normalize

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Source abstracts where an uploaded payload comes from.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

// FileSource reads a payload from the local filesystem.
type FileSource struct {
	Path string
}

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f *FileSource) Name() string {
	return filepath.Base(f.Path)
}

// MultipartFileSource reads an uploaded multipart file.
type MultipartFileSource struct {
	Header *multipart.FileHeader
}

func (m *MultipartFileSource) Open() (io.ReadCloser, error) {
	return m.Header.Open()
}

func (m *MultipartFileSource) Name() string {
	return m.Header.Filename
}

// BytesSource serves an in-memory payload.
type BytesSource struct {
	Filename string
	Data     []byte
}

func (b *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (b *BytesSource) Name() string {
	return b.Filename
}
