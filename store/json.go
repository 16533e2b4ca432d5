package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentteam/core"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// JSONOptions configure a JSONStore.
type JSONOptions struct {
	// Now stamps records and file names.
	Now func() time.Time
}

// JSONStore writes each run to <dir>/<team>_<timestamp>.json.
type JSONStore struct {
	dir string
	now func() time.Time
}

// NewJSONStore returns a store writing into dir. The directory is created on
// first save.
func NewJSONStore(dir string, optFns ...func(o *JSONOptions)) *JSONStore {
	opts := JSONOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &JSONStore{dir: dir, now: opts.Now}
}

// Dir returns the results directory.
func (s *JSONStore) Dir() string { return s.dir }

// Save writes r as indented JSON and returns the file path. A second run of
// the same team within one second gets the task id appended.
func (s *JSONStore) Save(_ context.Context, r *core.TeamResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("result is required")
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	rec := NewRecord(r, s.now())

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	base := fileStem(rec.Team) + "_" + rec.Timestamp
	path := filepath.Join(s.dir, base+".json")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- path is built from sanitized parts
	if errors.Is(err, os.ErrExist) {
		path = filepath.Join(s.dir, base+"_"+fileStem(shortID(rec.ID))+".json")
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 -- path is built from sanitized parts
	}

	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	return path, nil
}

// Get reads a record by path, or by file name inside the results dir.
func (s *JSONStore) Get(_ context.Context, ref string) (*Record, error) {
	path := ref
	if !strings.ContainsRune(ref, os.PathSeparator) {
		path = filepath.Join(s.dir, ref)
	}

	if filepath.Ext(path) != ".json" {
		path += ".json"
	}

	return readRecord(path)
}

// List reads every result file in the directory, newest first. Files that
// fail to decode are skipped.
func (s *JSONStore) List(_ context.Context, team string) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read results dir: %w", err)
	}

	var out []Summary

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, e.Name())

		rec, err := readRecord(path)
		if err != nil {
			continue
		}

		if team != "" && rec.Team != team {
			continue
		}

		out = append(out, rec.Summary(path))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}

		return out[i].Ref > out[j].Ref
	})

	return out, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caller chooses the result file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &rec, nil
}

func fileStem(name string) string {
	stem := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_.")
	if stem == "" {
		return "team"
	}

	return stem
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
