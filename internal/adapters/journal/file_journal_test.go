package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFileJournalAppendAndReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log"})
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	if err := j.Append([]byte(`{"sensor_id":"sensor-1"}`)); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := j.Append([]byte("{\"sensor_id\":\"sensor-2\"}\n")); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "sensor.log"))
	if len(lines) != 2 || lines[0] != `{"sensor_id":"sensor-1"}` || lines[1] != `{"sensor_id":"sensor-2"}` {
		t.Fatalf("unexpected lines: %q", lines)
	}

	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.Append([]byte("{}")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}

	j2, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	stats := j2.Stats()
	if stats.Lines != 2 {
		t.Fatalf("expected 2 lines after reopen, got %d", stats.Lines)
	}
	if stats.SizeBytes != int64(len(`{"sensor_id":"sensor-1"}`)+len(`{"sensor_id":"sensor-2"}`)+2) {
		t.Fatalf("unexpected size %d", stats.SizeBytes)
	}
}

func TestFileJournalTruncatesTornLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensor.log")
	if err := os.WriteFile(path, []byte("{\"a\":1}\n{\"b\":"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	if err := j.Append([]byte(`{"c":3}`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 || lines[0] != `{"a":1}` || lines[1] != `{"c":3}` {
		t.Fatalf("expected torn line to be dropped, got %q", lines)
	}
}

func TestFileJournalRotatesAndBoundsGenerations(t *testing.T) {
	dir := t.TempDir()
	line := []byte(strings.Repeat("x", 9)) // 10 bytes with newline

	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log", MaxBytes: 30, MaxBackups: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	for i := 0; i < 12; i++ {
		if err := j.Append(line); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	stats := j.Stats()
	if stats.Rotations != 3 {
		t.Fatalf("expected 3 rotations, got %d", stats.Rotations)
	}
	if stats.Generations != 2 {
		t.Fatalf("expected 2 retained generations, got %d", stats.Generations)
	}
	if _, err := os.Stat(filepath.Join(dir, "sensor.log.3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no third generation, stat err=%v", err)
	}
	for _, name := range []string{"sensor.log", "sensor.log.1", "sensor.log.2"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Size() > 30 {
			t.Fatalf("%s exceeds bound: %d bytes", name, info.Size())
		}
	}
}

func TestFileJournalWithoutBackupsDiscardsOnRotation(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log", MaxBytes: 10})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	for i := 0; i < 3; i++ {
		if err := j.Append([]byte(fmt.Sprintf("line-%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	lines := readLines(t, filepath.Join(dir, "sensor.log"))
	if len(lines) != 1 || lines[0] != "line-2" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestFileJournalConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log", MaxBytes: 4096, MaxBackups: 50})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				payload, _ := json.Marshal(map[string]int{"writer": w, "seq": i})
				if err := j.Append(payload); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "sensor.log*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	total := 0
	for _, f := range files {
		for _, l := range readLines(t, f) {
			var v map[string]int
			if err := json.Unmarshal([]byte(l), &v); err != nil {
				t.Fatalf("malformed line %q in %s: %v", l, f, err)
			}
			total++
		}
	}
	if total != writers*perWriter {
		t.Fatalf("expected %d lines, got %d", writers*perWriter, total)
	}
}

func TestFileJournalWriteAddsNewline(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{Dir: dir, FileName: "sensor.log"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	n, err := j.Write([]byte(`{"level":"error"}`))
	if err != nil || n != len(`{"level":"error"}`) {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	if _, err := j.Write([]byte("{\"level\":\"info\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readLines(t, filepath.Join(dir, "sensor.log")); len(got) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2025, 2, 3, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	if got := DefaultFileName(now); got != "sensor_logs_2025-02-04.log" {
		t.Fatalf("unexpected file name %s", got)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return out
}
