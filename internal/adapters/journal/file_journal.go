package journal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ghalamif/SensorLog/internal/ports"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("journal closed")

const (
	DefaultMaxBytes   = 10 << 20
	DefaultMaxBackups = 24
)

// Config sizes the journal. A MaxBytes of zero disables rotation; a MaxBackups
// of zero or less keeps no rotated generations.
type Config struct {
	Dir        string
	FileName   string
	MaxBytes   int64
	MaxBackups int
}

// DefaultFileName names the journal after the UTC day it was opened.
func DefaultFileName(now time.Time) string {
	return fmt.Sprintf("sensor_logs_%s.log", now.UTC().Format("2006-01-02"))
}

// FileJournal is a size-bounded, rotating, newline-delimited log file.
type FileJournal struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	maxBytes   int64
	maxBackups int
	sizeBytes  int64
	lines      uint64
	rotations  uint64
	closed     bool
}

func NewFileJournal(cfg Config) (*FileJournal, error) {
	if cfg.Dir == "" {
		return nil, errors.New("journal dir is required")
	}
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName(time.Now())
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:       filepath.Join(cfg.Dir, cfg.FileName),
		maxBytes:   cfg.MaxBytes,
		maxBackups: cfg.MaxBackups,
	}
	if j.maxBackups < 0 {
		j.maxBackups = 0
	}
	if err := j.bootstrap(); err != nil {
		return nil, err
	}
	if err := j.openLocked(); err != nil {
		return nil, err
	}
	return j, nil
}

// bootstrap counts complete lines of an existing file and cuts off a torn
// trailing line left by a crash mid-write.
func (j *FileJournal) bootstrap() error {
	stat, err := os.Stat(j.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset  int64
		pending int64
		lines   uint64
	)
	for {
		chunk, err := reader.ReadSlice('\n')
		pending += int64(len(chunk))
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("journal scan: %w", err)
		}
		offset += pending
		pending = 0
		lines++
	}

	if offset != stat.Size() {
		if err := os.Truncate(j.path, offset); err != nil {
			return fmt.Errorf("journal truncate torn line: %w", err)
		}
	}
	j.sizeBytes = offset
	j.lines = lines
	return nil
}

func (j *FileJournal) openLocked() error {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	return nil
}

// Append writes line plus a trailing newline, rotating first when the write
// would push the file past MaxBytes.
func (j *FileJournal) Append(line []byte) error {
	line = bytes.TrimRight(line, "\n")
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writeLocked(buf)
}

// Write appends p verbatim, adding a newline if p lacks one. It lets the
// journal serve as a zapcore.WriteSyncer.
func (j *FileJournal) Write(p []byte) (int, error) {
	buf := p
	if len(p) == 0 || p[len(p)-1] != '\n' {
		buf = make([]byte, 0, len(p)+1)
		buf = append(buf, p...)
		buf = append(buf, '\n')
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeLocked(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (j *FileJournal) writeLocked(buf []byte) error {
	if j.closed {
		return ErrClosed
	}
	if j.file == nil {
		// a previous rotation failed half way
		if err := j.openLocked(); err != nil {
			return err
		}
	}
	if j.maxBytes > 0 && j.sizeBytes > 0 && j.sizeBytes+int64(len(buf)) > j.maxBytes {
		if err := j.rotateLocked(); err != nil {
			return fmt.Errorf("journal rotate: %w", err)
		}
	}

	n, err := j.file.Write(buf)
	j.sizeBytes += int64(n)
	if err != nil {
		return err
	}
	j.lines++
	return nil
}

// rotateLocked shifts <path>.i to <path>.i+1, dropping the oldest generation,
// and starts a fresh file.
func (j *FileJournal) rotateLocked() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	j.file = nil

	if j.maxBackups == 0 {
		if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else {
		oldest := j.backupPath(j.maxBackups)
		if err := os.Remove(oldest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		for i := j.maxBackups - 1; i >= 1; i-- {
			if err := os.Rename(j.backupPath(i), j.backupPath(i+1)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		if err := os.Rename(j.path, j.backupPath(1)); err != nil {
			return err
		}
	}

	j.sizeBytes = 0
	j.rotations++
	return j.openLocked()
}

func (j *FileJournal) backupPath(gen int) string {
	return fmt.Sprintf("%s.%d", j.path, gen)
}

func (j *FileJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed || j.file == nil {
		return nil
	}
	return j.file.Sync()
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if j.file == nil {
		return nil
	}
	return errors.Join(j.file.Sync(), j.file.Close())
}

func (j *FileJournal) Path() string { return j.path }

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()

	gens := 0
	for i := 1; i <= j.maxBackups; i++ {
		if _, err := os.Stat(j.backupPath(i)); err == nil {
			gens++
		}
	}
	return ports.JournalStats{
		Path:        j.path,
		SizeBytes:   j.sizeBytes,
		Lines:       j.lines,
		Rotations:   j.rotations,
		Generations: gens,
	}
}

var _ ports.Journal = (*FileJournal)(nil)
