package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

const tempSuffix = ".tmp"

// Backend is a filesystem implementation of the simpleupload.Backend interface.
// Files live flat under BaseDir.
type Backend struct {
	baseDir  string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// Config options for the filesystem backend
type Config struct {
	BaseDir  string      // Base directory for storing files
	DirPerm  os.FileMode // Defaults to 0755
	FilePerm os.FileMode // Defaults to 0644
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.DirPerm == 0 {
		config.DirPerm = 0755
	}
	if config.FilePerm == 0 {
		config.FilePerm = 0644
	}

	if err := os.MkdirAll(config.BaseDir, config.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:  config.BaseDir,
		dirPerm:  config.DirPerm,
		filePerm: config.FilePerm,
	}, nil
}

// BaseDir returns the directory holding the files.
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// Write stores the content under name. Bytes go to a hidden temp file that is
// synced and renamed into place, so a failed write never leaves a partial file
// under the final name.
func (b *Backend) Write(ctx context.Context, name string, reader io.Reader, contentType string) error {
	finalPath, err := b.path(name)
	if err != nil {
		return err
	}

	// The directory may have been removed since New; MkdirAll is idempotent
	// under concurrent callers.
	if err := os.MkdirAll(b.baseDir, b.dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.baseDir, "."+name+".*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Chmod(b.filePerm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true

	return nil
}

// Open opens the named file. The returned *os.File supports seeking.
func (b *Backend) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, simpleupload.ErrFileNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Remove deletes the named file
func (b *Backend) Remove(ctx context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return simpleupload.ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List returns the regular files in BaseDir, skipping in-progress temp files
func (b *Backend) List(ctx context.Context) ([]simpleupload.ObjectInfo, error) {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	objects := make([]simpleupload.ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		objects = append(objects, simpleupload.ObjectInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return objects, nil
}

func (b *Backend) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", simpleupload.ErrInvalidName, name)
	}
	return filepath.Join(b.baseDir, name), nil
}
