package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestStoreAppendWritesJSONLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store := NewStore(path)
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Append(map[string]any{"signature": "abc", "algorithm": "HS256"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(map[string]any{"signature": "def"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatal("log must be newline terminated")
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first["signature"] != "abc" {
		t.Fatalf("unexpected first line %v", first)
	}
}

func TestStoreAppendIsConcurrencySafe(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store := NewStore(path)
	t.Cleanup(func() { _ = store.Close() })

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Append(map[string]any{"n": n, "pad": strings.Repeat("x", 256)})
		}(i)
	}
	wg.Wait()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("interleaved write produced invalid JSON: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan log: %v", err)
	}
	if count != writers {
		t.Fatalf("expected %d lines, got %d", writers, count)
	}
}

func TestStoreRotation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store := NewStore(path, WithRotation(128))
	t.Cleanup(func() { _ = store.Close() })

	entry := map[string]any{"pad": strings.Repeat("x", 100)}
	for i := 0; i < 3; i++ {
		if err := store.Append(entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected rotated file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat live file: %v", err)
	}
	if info.Size() > 128 {
		t.Fatalf("live file exceeds cap: %d", info.Size())
	}
}

func TestStoreRotationRetention(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store := NewStore(path, WithRotation(64), WithRetention(2))
	t.Cleanup(func() { _ = store.Close() })

	entry := map[string]any{"pad": strings.Repeat("x", 50)}
	for i := 0; i < 6; i++ {
		if err := store.Append(entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Fatalf("expected oldest sibling removed, got %v", err)
	}
	for _, suffix := range []string{".4", ".5"} {
		if _, err := os.Stat(path + suffix); err != nil {
			t.Fatalf("expected retained sibling %s: %v", suffix, err)
		}
	}
}

func TestStoreDefaultsPath(t *testing.T) {
	t.Parallel()
	if NewStore("").Path() != DefaultPath {
		t.Fatal("expected default path")
	}
}
