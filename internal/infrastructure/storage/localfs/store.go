// Package localfs stores files in a directory on the local disk.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/files"
)

// Store implements files.Storage on a directory tree.
type Store struct {
	root    string
	baseURL string
}

// New creates the root directory if needed.
func New(root, baseURL string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create file root %s: %w", root, err)
	}
	return &Store{root: root, baseURL: baseURL}, nil
}

// resolve maps an object path into root and rejects paths escaping it.
func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(path))
	if clean == "/" {
		return "", apperror.NewValidation("file path is empty")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *Store) Put(ctx context.Context, path string, content []byte, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, path string) (files.Object, error) {
	full, err := s.resolve(path)
	if err != nil {
		return files.Object{}, err
	}
	content, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return files.Object{}, apperror.NewNotFound("file", path)
	}
	if err != nil {
		return files.Object{}, fmt.Errorf("read %s: %w", path, err)
	}
	ct := mime.TypeByExtension(filepath.Ext(full))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return files.Object{Path: path, Content: content, ContentType: ct}, nil
}

func (s *Store) URL(ctx context.Context, path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperror.NewNotFound("file", path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return files.JoinURL(s.baseURL, path), nil
}

// Delete removes path. Deleting a missing file is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

var (
	_ files.Storage = (*Store)(nil)
	_ files.Reader  = (*Store)(nil)
)
