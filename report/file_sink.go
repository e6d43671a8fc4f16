package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink keeps each stream in a JSONL file under a directory.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Path returns the file backing the stream at key.
func (s *FileSink) Path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", string(filepath.Separator), "_").Replace(key)
	return filepath.Join(s.dir, name+".jsonl")
}

func (s *FileSink) Recreate(_ context.Context, key string, entries []StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create stream file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writeEntries(tmp, entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close stream file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace stream file: %w", err)
	}
	return nil
}

func (s *FileSink) Append(_ context.Context, key string, entries []StreamEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.Path(key), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open stream file: %w", err)
	}
	if err := writeEntries(file, entries); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Entries reads back the stream at key. A missing stream is empty.
func (s *FileSink) Entries(key string) ([]StreamEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open stream file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []StreamEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry StreamEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("decode stream entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func writeEntries(file *os.File, entries []StreamEntry) error {
	enc := json.NewEncoder(file)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode stream entry: %w", err)
		}
	}
	return nil
}
