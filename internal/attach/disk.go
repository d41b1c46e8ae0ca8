package attach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps attachments as flat files under a single directory,
// served back at /uploads/<ref>.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(_ context.Context, r io.Reader, originalName string) (string, int64, error) {
	ref := SafeName(originalName)
	file, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create attachment: %w", err)
	}
	size, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, ref))
		return "", 0, fmt.Errorf("write attachment: %w", err)
	}
	return ref, size, nil
}

func (s *DiskStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	file, err := os.Open(filepath.Join(s.dir, ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return file, nil
}

func (s *DiskStore) Remove(_ context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func (s *DiskStore) URL(ref string) string {
	return "/uploads/" + ref
}

// validRef rejects anything that could escape the upload dir. Stored refs
// are produced by SafeName and never contain separators.
func validRef(ref string) bool {
	if ref == "" || ref == "." || ref == ".." {
		return false
	}
	return !strings.ContainsAny(ref, `/\`)
}
