package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage writes uploaded files under a media directory and returns a
// serveable reference. Swappable for object storage behind the same method.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create media directory: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

// StoreFile persists the bytes under a collision-free name and returns the
// reference used for later retrieval.
func (s *LocalStorage) StoreFile(data []byte, name string) (string, error) {
	stored := uuid.NewString() + "-" + filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.dir, stored), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store file %s: %w", name, err)
	}
	return s.baseURL + "/" + stored, nil
}
