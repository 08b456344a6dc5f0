package resource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storer writes bytes to a location.
type Storer interface {
	Store(ctx context.Context, location string, data []byte, contentType string) error
}

// FileStorer writes local files, creating parent directories.
type FileStorer struct{}

func (FileStorer) Store(_ context.Context, location string, data []byte, _ string) error {
	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(location, data, 0644)
}

// StoreMux dispatches a location to the storer of its scheme.
type StoreMux struct {
	Local   Storer
	Objects Storer
}

// NewStoreMux returns a StoreMux writing local files and, when objects is
// non-nil, s3:// URLs.
func NewStoreMux(objects Storer) *StoreMux {
	return &StoreMux{Local: FileStorer{}, Objects: objects}
}

func (m *StoreMux) Store(ctx context.Context, location string, data []byte, contentType string) error {
	if IsObjectURL(location) {
		if m.Objects == nil {
			return ErrStorageUnavailable
		}
		return m.Objects.Store(ctx, location, data, contentType)
	}
	local := m.Local
	if local == nil {
		local = FileStorer{}
	}
	return local.Store(ctx, location, data, contentType)
}
