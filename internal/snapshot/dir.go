package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tosin2013/docdrift/internal/model"
)

const (
	filePrefix = "snapshot-"
	fileSuffix = ".json"
)

// DirStore keeps each snapshot as one JSON file in a directory. Files are
// written to a temporary name and renamed into place, so readers never see a
// partial snapshot.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir. The directory is created on first save.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir returns the store directory.
func (s *DirStore) Dir() string { return s.dir }

// Save implements Store. The returned key is the file path.
func (s *DirStore) Save(ctx context.Context, snap *model.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	path := filepath.Join(s.dir, filePrefix+key(snap)+fileSuffix)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}
	return path, nil
}

// List implements Store.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, filepath.Join(s.dir, name))
	}
	sort.Strings(names)
	return names, nil
}

// LoadLatest implements Store. The latest snapshot is the lexicographically
// greatest file name, which orders by UTC timestamp.
func (s *DirStore) LoadLatest(ctx context.Context) (*model.Snapshot, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshot, s.dir)
	}
	return s.Load(names[len(names)-1])
}

// Load reads one snapshot file. Unreadable or corrupt files wrap ErrNoSnapshot.
func (s *DirStore) Load(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSnapshot, filepath.Base(path), err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s is corrupt: %v", ErrNoSnapshot, filepath.Base(path), err)
	}
	return &snap, nil
}
