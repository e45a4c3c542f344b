package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = time.Second
)

// Last returns up to n of the final lines of path that contain match, plus
// the offset just past the last complete line. A missing file yields no lines
// and offset zero.
func Last(path string, n int, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		_, offset, err := scanLines(file, 0, match, nil)
		return nil, offset, err
	}

	ring := make([]string, n)
	count, idx := 0, 0
	_, offset, err := scanLines(file, 0, match, func(line string) error {
		ring[idx] = line
		idx = (idx + 1) % n
		if count < n {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == n {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%n]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow calls fn for every matching line appended to path after offset until
// ctx is cancelled or fn returns an error. When path starts pointing at a
// different file, reading restarts from its beginning.
func Follow(ctx context.Context, path string, offset int64, match string, fn func(line string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch log directory: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var current os.FileInfo
	drain := func() error {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("stat log file: %w", err)
		}
		if current != nil && !os.SameFile(current, info) {
			offset = 0
		}
		if info.Size() < offset {
			offset = 0
		}
		current = info

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		_, offset, err = scanLines(file, offset, match, fn)
		return err
	}

	if err := drain(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher: %w", err)
		case <-ticker.C:
		}
		if err := drain(); err != nil {
			return err
		}
	}
}

// scanLines reads complete lines of file from offset, calling fn for those
// containing match. A trailing partial line is left for the next read. It
// returns the number of lines delivered and the offset after the last
// complete line.
func scanLines(file *os.File, offset int64, match string, fn func(string) error) (int, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	delivered := 0
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return delivered, offset, nil
		}
		if err != nil {
			return delivered, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		if match != "" && !strings.Contains(text, match) {
			continue
		}
		if fn != nil {
			if err := fn(text); err != nil {
				return delivered, offset, err
			}
		}
		delivered++
	}
}
