// Package fs reads captured frames from a spool directory.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tpmsrelay/internal/bitframe"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

// SpoolSource implements ports.CaptureSource over a directory of text files
// written by an external OOK demodulator. Each line holds one frame in the
// "{bits}hex" row notation; blank lines and lines starting with '#' are
// ignored.
//
// Files are consumed in name order. Without follow the spool is a finite
// replay and every frame is handed over with Put, waiting for the consumer.
// In follow mode the directory is then watched and lines appended to any
// file are delivered as they arrive. Live delivery uses Offer, so a stalled
// consumer drops frames rather than holding up the watcher.
// Read positions survive a restart of Run, so a watcher error does not
// cause frames to be delivered twice.
type SpoolSource struct {
	dir     string
	follow  bool
	logger  ports.Logger
	offsets map[string]int64
}

// NewSpoolSource creates a spool reader for dir.
func NewSpoolSource(dir string, follow bool, logger ports.Logger) *SpoolSource {
	return &SpoolSource{
		dir:     dir,
		follow:  follow,
		logger:  logger,
		offsets: make(map[string]int64),
	}
}

// Run implements ports.CaptureSource.
func (s *SpoolSource) Run(ctx context.Context, sink ports.FrameSink) error {
	var watcher *fsnotify.Watcher
	if s.follow {
		// Watch before the initial scan so files created during it are seen.
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("spool watcher: %w", err)
		}
		defer w.Close()
		if err := w.Add(s.dir); err != nil {
			return fmt.Errorf("watch spool %s: %w", s.dir, err)
		}
		watcher = w
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read spool %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		err := s.consume(ctx, filepath.Join(s.dir, e.Name()), sink, !s.follow)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.Warn("spool file skipped", ports.String("file", e.Name()), ports.Err(err))
		}
	}

	if watcher == nil {
		return nil
	}

	s.logger.Info("watching capture spool", ports.String("dir", s.dir))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("spool watcher closed")
			}
			if isHidden(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := s.consume(ctx, event.Name, sink, false); err != nil && !errors.Is(err, os.ErrNotExist) {
					s.logger.Warn("spool file skipped", ports.String("file", event.Name), ports.Err(err))
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(s.offsets, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("spool watcher closed")
			}
			return fmt.Errorf("spool watcher: %w", err)
		}
	}
}

// consume delivers the complete lines of path past its recorded offset.
// A trailing line without a newline is held back unless final is set,
// since the writer may still be appending to it.
func (s *SpoolSource) consume(ctx context.Context, path string, sink ports.FrameSink, final bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	offset := s.offsets[path]
	if info.Size() < offset {
		// Truncated and rewritten.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if err == io.EOF && (!final || len(line) == 0) {
			break
		}
		if err != nil && err != io.EOF {
			s.offsets[path] = offset
			return err
		}
		if derr := s.deliver(ctx, path, line, sink); derr != nil {
			s.offsets[path] = offset
			return derr
		}
		offset += int64(len(line))
		if err == io.EOF {
			break
		}
	}
	s.offsets[path] = offset
	return nil
}

// deliver hands one row to sink. It only fails when a blocking Put is
// canceled, in which case the row has not been consumed.
func (s *SpoolSource) deliver(ctx context.Context, path string, line []byte, sink ports.FrameSink) error {
	row := strings.TrimSpace(string(bytes.TrimRight(line, "\r\n")))
	if row == "" || strings.HasPrefix(row, "#") {
		return nil
	}
	frame, err := bitframe.ParseRow(row)
	if err != nil {
		s.logger.Debug("unparseable capture row",
			ports.String("file", filepath.Base(path)),
			ports.String("row", row),
			ports.Err(err),
		)
		return nil
	}
	if !s.follow {
		return sink.Put(ctx, frame)
	}
	if !sink.Offer(frame) {
		s.logger.Debug("capture hand-off full, frame dropped", ports.Int("bits", frame.Len()))
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

var _ ports.CaptureSource = (*SpoolSource)(nil)
