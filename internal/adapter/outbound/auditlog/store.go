// Package auditlog appends audit entries to a local JSON-lines file.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultPath is where audit entries land unless configured otherwise.
const DefaultPath = "data/audit-log.jsonl"

// defaultRetain is how many rotated siblings survive cleanup.
const defaultRetain = 5

// Store serializes appends to one JSON-lines file. The file is opened
// lazily and never rewritten; every entry becomes one newline-terminated
// line.
type Store struct {
	path     string
	maxBytes int64
	retain   int

	mu   sync.Mutex
	file *os.File
}

// Option configures a Store.
type Option func(*Store)

// WithRotation caps the file size; when an append would grow the file past
// maxBytes, the current file is renamed to a numbered sibling first. Zero
// disables rotation.
func WithRotation(maxBytes int64) Option {
	return func(s *Store) { s.maxBytes = maxBytes }
}

// WithRetention sets how many rotated siblings to keep. Older siblings are
// removed after each rotation.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retain = n
		}
	}
}

// NewStore builds a store for path, falling back to the default location
// when path is empty.
func NewStore(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{path: path, retain: defaultRetain}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Append writes one entry as a JSON line.
func (s *Store) Append(entry any) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.rotateIfNeeded(int64(len(line) + 1)); err != nil {
		return err
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Close releases the file handle. Further appends reopen it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	file := s.file
	s.file = nil
	return file.Close()
}

func (s *Store) ensureOpen() error {
	if s.file != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	s.file = file
	return nil
}

func (s *Store) rotateIfNeeded(incoming int64) error {
	if s.maxBytes <= 0 {
		return nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}
	if info.Size()+incoming <= s.maxBytes {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}
	s.file = nil

	next := highestSuffix(s.path) + 1
	if err := os.Rename(s.path, fmt.Sprintf("%s.%d", s.path, next)); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}
	s.cleanupRotated()
	return s.ensureOpen()
}

// highestSuffix scans the log directory for rotated siblings of path and
// returns the largest numeric suffix found, or zero.
func highestSuffix(path string) int {
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return 0
	}
	base := filepath.Base(path)
	highest := 0
	for _, e := range entries {
		if n, ok := parseSuffix(base, e.Name()); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// parseSuffix extracts N from names shaped like "<base>.N".
func parseSuffix(base, name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// cleanupRotated removes the oldest rotated siblings beyond the retention
// count. Removal failures are ignored; the next rotation retries.
func (s *Store) cleanupRotated() {
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	base := filepath.Base(s.path)
	var suffixes []int
	for _, e := range entries {
		if n, ok := parseSuffix(base, e.Name()); ok {
			suffixes = append(suffixes, n)
		}
	}
	if len(suffixes) <= s.retain {
		return
	}
	sort.Ints(suffixes)
	for _, n := range suffixes[:len(suffixes)-s.retain] {
		_ = os.Remove(filepath.Join(dir, fmt.Sprintf("%s.%d", base, n)))
	}
}
