package iocache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// snapshotGlob matches the snapshot files managed by FileStore.
const snapshotGlob = "dump-*.json"

// FileStore keeps one JSON file per snapshot key in a directory.
// The file modification time doubles as the entry timestamp.
type FileStore struct {
	dir string
}

var _ contract.CacheStore = &FileStore{} // Compile-time check

// NewFileStore returns a file store rooted at dir. The directory must already exist.
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{dir: dir}
	if err := s.checkDir(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the directory holding the snapshot files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path of a snapshot key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) checkDir() error {
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", contract.ErrCacheDirMissing, s.dir)
	}
	return nil
}

// Get reads a snapshot file.
func (s *FileStore) Get(key string) ([]byte, int, int64, error) {
	if err := s.checkDir(); err != nil {
		return nil, 0, 0, err
	}
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, 0, contract.ErrCacheMiss
		}
		return nil, 0, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return data, 0, info.ModTime().Unix(), nil
}

// Set replaces a snapshot file atomically through a temporary file in the same directory.
func (s *FileStore) Set(key string, value []byte, _ int, timestamp int64) error {
	if err := s.checkDir(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}

	path := s.Path(key)
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	ts := time.Unix(timestamp, 0)
	_ = os.Chtimes(path, ts, ts)
	return nil
}

// snapshotFiles lists the snapshot files of the directory.
func (s *FileStore) snapshotFiles() ([]os.FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, snapshotGlob))
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), ".") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetStatus summarizes the snapshot files of the directory.
func (s *FileStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.JSONBackend)}
	if err := s.checkDir(); err != nil {
		return status, nil
	}
	status.Connected = true

	infos, err := s.snapshotFiles()
	if err != nil {
		return status, fmt.Errorf("failed to list snapshots: %w", err)
	}
	status.TotalEntries = len(infos)
	for i, info := range infos {
		mod := info.ModTime()
		if i == 0 || mod.After(status.LastEntryTime) {
			status.LastEntryTime = mod
		}
		if i == 0 || mod.Before(status.OldestEntryTime) {
			status.OldestEntryTime = mod
		}
		status.TableSizeBytes += info.Size()
	}
	return status, nil
}

// Clear removes every snapshot file of the directory.
func (s *FileStore) Clear() error {
	if err := s.checkDir(); err != nil {
		return err
	}
	infos, err := s.snapshotFiles()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	for _, info := range infos {
		path := s.Path(info.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// Close does nothing for a file store.
func (s *FileStore) Close() error {
	return nil
}
