package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	chartstorage "github.com/chartmuseum/storage"
)

// LocalStore implements ObjectStorage on a directory tree.
type LocalStore struct {
	backend chartstorage.Backend
	root    string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage directory must be provided")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating %s: %w", root, err)
	}
	return &LocalStore{
		backend: chartstorage.NewLocalFilesystemBackend(root),
		root:    root,
	}, nil
}

// ListObjects lists every object below prefix, descending into subdirectories
// like the S3 backend's recursive listing.
func (s *LocalStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	base := filepath.Join(s.root, filepath.FromSlash(prefix))
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return []ObjectInfo{}, nil
	}

	results := make([]ObjectInfo, 0)
	err := filepath.WalkDir(base, func(dir string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, dir)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}

		objects, err := s.backend.ListObjects(rel)
		if err != nil {
			return err
		}
		for _, object := range objects {
			key := path.Join(rel, object.Path)
			var size int64
			if info, err := os.Stat(filepath.Join(dir, object.Path)); err == nil {
				size = info.Size()
			}
			results = append(results, ObjectInfo{Key: key, Size: size})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local list failed: %w", err)
	}
	return results, nil
}

// DownloadObject copies an object to the provided destination path.
func (s *LocalStore) DownloadObject(ctx context.Context, key, destPath string) error {
	object, err := s.backend.GetObject(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, object.Content, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	return nil
}

// UploadObject writes data under key, creating parent directories.
func (s *LocalStore) UploadObject(ctx context.Context, key string, data []byte) error {
	if err := s.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("local upload %s failed: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*LocalStore)(nil)
