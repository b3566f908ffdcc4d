package results

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists attempts as append-only JSON lines in a local file,
// so training results survive process restarts without needing a database.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string

	// Running stats over lines appended in this process plus lines found
	// in the file at open time.
	count int
	avg   float64
}

// OpenFileStore creates a FileStore writing to path. Any attempts already
// present in the file are counted into the running statistics; the file is
// created on first append if it does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("results: open %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var a Attempt
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("results: corrupt line in %q: %w", path, err)
		}
		fs.avg = addToMean(fs.avg, fs.count, a.Scores.TotalSync)
		fs.count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("results: scan %q: %w", path, err)
	}
	return fs, nil
}

// Append writes one attempt as a JSON line.
func (fs *FileStore) Append(_ context.Context, a Attempt) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("results: marshal attempt: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("results: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("results: write: %w", err)
	}

	fs.avg = addToMean(fs.avg, fs.count, a.Scores.TotalSync)
	fs.count++
	return nil
}

// List re-reads the whole file and returns every attempt in insertion
// order.
func (fs *FileStore) List(_ context.Context) ([]Attempt, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("results: open %q: %w", fs.path, err)
	}
	defer f.Close()

	var attempts []Attempt
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var a Attempt
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			return nil, fmt.Errorf("results: corrupt line in %q: %w", fs.path, err)
		}
		attempts = append(attempts, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("results: scan %q: %w", fs.path, err)
	}
	return attempts, nil
}

// Stats returns the running statistics.
func (fs *FileStore) Stats(_ context.Context) (Stats, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return Stats{Attempts: fs.count, AverageTotal: fs.avg}, nil
}

// Close is a no-op; the file is opened per append.
func (fs *FileStore) Close() error { return nil }
