package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/files"
)

// compressFilesAbove is the size from which blobs are stored zstd-compressed.
// PNG signatures are already compressed and usually stay below it.
const compressFilesAbove = 64 * 1024

// FileStore implements files.Storage on the sys_files table.
// Writes use the pool directly and are not part of a surrounding transaction.
type FileStore struct {
	pool    *Pool
	baseURL string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFileStore creates a file store serving URLs under baseURL.
func NewFileStore(pool *Pool, baseURL string) (*FileStore, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &FileStore{pool: pool, baseURL: baseURL, encoder: encoder, decoder: decoder}, nil
}

// Put stores content under path, replacing an existing object.
func (s *FileStore) Put(ctx context.Context, path string, content []byte, contentType string) error {
	data, compressed := s.pack(content)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sys_files (path, content, content_type, compressed, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (path) DO UPDATE
		SET content = EXCLUDED.content,
		    content_type = EXCLUDED.content_type,
		    compressed = EXCLUDED.compressed,
		    size = EXCLUDED.size,
		    created_at = EXCLUDED.created_at`,
		path, data, contentType, compressed, len(content), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put file %s: %w", path, err)
	}
	return nil
}

// Get loads a stored object.
func (s *FileStore) Get(ctx context.Context, path string) (files.Object, error) {
	var (
		data        []byte
		contentType string
		compressed  bool
	)
	err := s.pool.QueryRow(ctx,
		`SELECT content, content_type, compressed FROM sys_files WHERE path = $1`, path).
		Scan(&data, &contentType, &compressed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return files.Object{}, apperror.NewNotFound("file", path)
		}
		return files.Object{}, fmt.Errorf("get file %s: %w", path, err)
	}

	content, err := s.unpack(data, compressed)
	if err != nil {
		return files.Object{}, err
	}
	return files.Object{Path: path, Content: content, ContentType: contentType}, nil
}

// URL returns the public URL of an existing object.
func (s *FileStore) URL(ctx context.Context, path string) (string, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sys_files WHERE path = $1)`, path).Scan(&exists); err != nil {
		return "", fmt.Errorf("check file %s: %w", path, err)
	}
	if !exists {
		return "", apperror.NewNotFound("file", path)
	}
	return files.JoinURL(s.baseURL, path), nil
}

// Delete removes an object. Missing objects are not an error.
func (s *FileStore) Delete(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sys_files WHERE path = $1`, path); err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) pack(content []byte) ([]byte, bool) {
	if len(content) <= compressFilesAbove {
		return content, false
	}
	return s.encoder.EncodeAll(content, nil), true
}

func (s *FileStore) unpack(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	out, err := s.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress file: %w", err)
	}
	return out, nil
}

var (
	_ files.Storage = (*FileStore)(nil)
	_ files.Reader  = (*FileStore)(nil)
)
