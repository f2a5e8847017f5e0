// internal/output/writer.go - Output writing implementation
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileWriter writes output to files with optional compression
type FileWriter struct {
	formatter   Formatter
	destination *fileDestination
}

// NewFileWriter creates a new file-based writer. A nil fsys means the OS filesystem.
func NewFileWriter(fsys afero.Fs, config WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := NewFormatter(config.FormatterConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	dest, err := newFileDestination(fsys, destination, config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
	}, nil
}

// Write writes a collection to the output file
func (w *FileWriter) Write(c *Collection) error {
	data, err := w.formatter.Format(c)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Name returns the path being written
func (w *FileWriter) Name() string {
	return w.destination.name
}

// Size returns the number of uncompressed bytes written
func (w *FileWriter) Size() int64 {
	return w.destination.size
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// StreamWriter writes output to a stream such as standard output
type StreamWriter struct {
	formatter Formatter
	out       io.Writer
}

// NewStdoutWriter creates a new stdout-based writer
func NewStdoutWriter(config FormatterConfig) (*StreamWriter, error) {
	return NewStreamWriter(config, os.Stdout)
}

// NewStreamWriter creates a writer over out
func NewStreamWriter(config FormatterConfig, out io.Writer) (*StreamWriter, error) {
	formatter, err := NewFormatter(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}
	return &StreamWriter{formatter: formatter, out: out}, nil
}

// Write writes a collection followed by a newline
func (w *StreamWriter) Write(c *Collection) error {
	data, err := w.formatter.Format(c)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close is a no-op for stream writers
func (w *StreamWriter) Close() error {
	return nil
}

// fileDestination is a file with an optional gzip layer
type fileDestination struct {
	file afero.File
	gz   *gzip.Writer
	name string
	size int64
}

// newFileDestination creates the file, adding .gz when compressing
func newFileDestination(fsys afero.Fs, path string, compression bool) (*fileDestination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	dest := &fileDestination{file: file, name: path}
	if compression {
		dest.gz = gzip.NewWriter(file)
	}
	return dest, nil
}

func (d *fileDestination) Write(p []byte) (int, error) {
	var w io.Writer = d.file
	if d.gz != nil {
		w = d.gz
	}
	n, err := w.Write(p)
	d.size += int64(n)
	return n, err
}

func (d *fileDestination) Close() error {
	if d.gz != nil {
		if err := d.gz.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// NewWriter creates the appropriate writer: stdout for "" or "-", a file otherwise
func NewWriter(fsys afero.Fs, config WriterConfig, destination string) (Writer, error) {
	if destination == "" || destination == "-" {
		return NewStdoutWriter(config.FormatterConfig)
	}
	return NewFileWriter(fsys, config, destination)
}
