// internal/source/local_fetcher.go - Local file fetching implementation
package source

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/valpere/mapml_features/internal"
)

// LocalFetcher implements the Fetcher interface over a filesystem
type LocalFetcher struct {
	fs       afero.Fs
	basePath string
}

// NewLocalFetcher creates a fetcher reading from fsys. A nil fsys means the OS filesystem.
func NewLocalFetcher(fsys afero.Fs, basePath string) *LocalFetcher {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &LocalFetcher{fs: fsys, basePath: basePath}
}

// Fetch reads a document from the filesystem, decompressing .gz files
func (f *LocalFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeTimeout, "fetch cancelled", err)
	}

	path := f.buildFilePath(location)

	info, err := f.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("document not found: %s", path), err)
		}
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("cannot access document: %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return nil, internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("path is not a regular file: %s", path), nil)
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to open document: %s", path), err)
	}
	defer file.Close()

	var reader io.Reader = file
	if isCompressedFile(path) {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("failed to create gzip reader for: %s", path), err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to read document: %s", path), err)
	}
	return data, nil
}

// List returns the MapML documents under dir, sorted by path
func (f *LocalFetcher) List(dir string) ([]string, error) {
	root := f.buildFilePath(dir)

	var docs []string
	err := afero.Walk(f.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if IsDocument(path) {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to scan directory: %s", root), err)
	}

	sort.Strings(docs)
	return docs, nil
}

// buildFilePath joins relative locations onto the base path
func (f *LocalFetcher) buildFilePath(location string) string {
	if filepath.IsAbs(location) || f.basePath == "" {
		return location
	}
	return filepath.Join(f.basePath, location)
}

// IsDocument reports whether path has a MapML or HTML extension, optionally gzipped
func IsDocument(path string) bool {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(name) {
	case ".mapml", ".html", ".htm", ".xml":
		return true
	}
	return false
}

// isCompressedFile determines if a file is compressed based on its extension
func isCompressedFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}
