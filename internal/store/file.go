package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"trade-journal/internal/errors"
)

const backendFile = "file"

// FileStore keeps the whole snapshot in one JSON or msgpack file, chosen by
// extension. Writes go to a temp file that is renamed over the target.
type FileStore struct {
	path  string
	codec Codec
	mu    sync.Mutex
}

// NewFileStore creates a file-backed snapshot store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{path: path, codec: CodecFor(path)}, nil
}

// Name returns the backend name.
func (f *FileStore) Name() string {
	return backendFile + ":" + f.codec.Name()
}

// Path returns the snapshot file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the snapshot file. A missing file loads as an empty snapshot.
func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := ReadSnapshotFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, errors.NewStoreError(backendFile, "load", err)
	}
	return snap, nil
}

// Save writes the snapshot atomically.
func (f *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteSnapshotFile(f.path, snap); err != nil {
		return errors.NewStoreError(backendFile, "save", err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}

// ReadSnapshotFile decodes a snapshot file with the codec for its extension.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(CodecFor(path), data)
}

// WriteSnapshotFile encodes a snapshot with the codec for the path's
// extension and replaces the file atomically.
func WriteSnapshotFile(path string, snap *Snapshot) error {
	data, err := EncodeSnapshot(CodecFor(path), snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
