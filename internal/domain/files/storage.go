// Package files defines the file storage collaborator used for signature
// images and uploaded receipts.
package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"handwerk/internal/core/id"
)

// Storage stores binary objects under slash-separated paths.
type Storage interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// Reader is implemented by storages that can serve stored content.
type Reader interface {
	Get(ctx context.Context, path string) (Object, error)
}

// Object is a stored file.
type Object struct {
	Path        string
	Content     []byte
	ContentType string
}

// JoinURL joins a public base URL and an object path.
func JoinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// SignaturePath returns the object path of a quote acceptance signature.
func SignaturePath(quoteID id.ID) string {
	return fmt.Sprintf("signatures/%s.png", quoteID)
}

// AttachmentPath builds a stable key for an uploaded file: folder/<id>-<slug>.<ext>.
func AttachmentPath(folder string, owner id.ID, filename string) string {
	name, ext := filename, ""
	if i := strings.LastIndex(filename, "."); i > 0 {
		name, ext = filename[:i], strings.ToLower(filename[i:])
	}
	s := slug.Make(name)
	if s == "" {
		s = "file"
	}
	return fmt.Sprintf("%s/%s-%s%s", strings.Trim(folder, "/"), owner, s, ext)
}
