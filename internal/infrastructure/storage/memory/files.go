package memory

import (
	"context"
	"sync"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/files"
)

// FileStore implements files.Storage in memory. Files live outside
// transactions, like an object store.
type FileStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]files.Object
	faults  map[string]error
}

// NewFileStore creates an empty file store serving URLs under baseURL.
func NewFileStore(baseURL string) *FileStore {
	return &FileStore{
		baseURL: baseURL,
		objects: make(map[string]files.Object),
		faults:  make(map[string]error),
	}
}

// InjectFault makes "put", "url" or "delete" fail with err; nil clears it.
func (f *FileStore) InjectFault(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.faults, op)
		return
	}
	f.faults[op] = err
}

func (f *FileStore) Put(ctx context.Context, path string, content []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.faults["put"]; err != nil {
		return err
	}
	f.objects[path] = files.Object{
		Path:        path,
		Content:     append([]byte(nil), content...),
		ContentType: contentType,
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, path string) (files.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[path]
	if !ok {
		return files.Object{}, apperror.NewNotFound("file", path)
	}
	obj.Content = append([]byte(nil), obj.Content...)
	return obj, nil
}

func (f *FileStore) URL(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.faults["url"]; err != nil {
		return "", err
	}
	if _, ok := f.objects[path]; !ok {
		return "", apperror.NewNotFound("file", path)
	}
	return files.JoinURL(f.baseURL, path), nil
}

func (f *FileStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.faults["delete"]; err != nil {
		return err
	}
	delete(f.objects, path)
	return nil
}

// Exists reports whether path is stored.
func (f *FileStore) Exists(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

var _ files.Storage = (*FileStore)(nil)
