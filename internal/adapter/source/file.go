package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/V4T54L/log-labeler/internal/domain"
)

const (
	initialLineBuffer = 64 * 1024
	defaultMaxLine    = 1024 * 1024 // 1MB
)

// FileSource implements domain.LineSource over local files. Files ending in
// .gz or .zst are decompressed transparently.
type FileSource struct {
	maxLineSize int
	logger      *slog.Logger
}

// NewFileSource creates a FileSource. A non-positive maxLineSize selects 1MB.
func NewFileSource(maxLineSize int, logger *slog.Logger) *FileSource {
	if maxLineSize <= 0 {
		maxLineSize = defaultMaxLine
	}
	return &FileSource{
		maxLineSize: maxLineSize,
		logger:      logger.With("component", "file_source"),
	}
}

// ReadLines reads every line of path. Any failure is wrapped with
// domain.ErrSourceUnavailable and no lines are returned.
func (s *FileSource) ReadLines(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", domain.ErrSourceUnavailable, path, err)
	}
	defer file.Close()

	r, closeFn, err := decompress(path, file)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decompress %s: %v", domain.ErrSourceUnavailable, path, err)
	}
	defer closeFn()

	lines, err := s.ReadFrom(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrSourceUnavailable, path, err)
	}

	s.logger.Debug("read source", "path", path, "lines", len(lines))
	return lines, nil
}

// ReadFrom reads all lines from r. Line terminators are stripped.
func (s *FileSource) ReadFrom(ctx context.Context, r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(initialLineBuffer, s.maxLineSize)), s.maxLineSize)

	var lines []string
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func decompress(path string, r io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}
