package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each set as a JSON array of email strings on disk, the
// relay's original durable format.
type FileStore struct {
	approvedPath string
	pendingPath  string
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		approvedPath: filepath.Join(dataDir, "approved.json"),
		pendingPath:  filepath.Join(dataDir, "pending.json"),
	}, nil
}

func (s *FileStore) Load(_ context.Context) (approved, pending []string, err error) {
	approved, err = readSet(s.approvedPath)
	if err != nil {
		return nil, nil, err
	}
	pending, err = readSet(s.pendingPath)
	if err != nil {
		return nil, nil, err
	}
	return approved, pending, nil
}

func (s *FileStore) Save(_ context.Context, approved, pending []string) error {
	if err := writeSet(s.approvedPath, approved); err != nil {
		return err
	}
	return writeSet(s.pendingPath, pending)
}

func readSet(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var set []string
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return set, nil
}

func writeSet(path string, set []string) error {
	if set == nil {
		set = []string{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
