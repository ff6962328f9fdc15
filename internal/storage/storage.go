// Package storage persists uploaded media and hands back a public URL.
package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

type Storage interface {
	Save(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, url string) error
}

// Discard removes objects whose database write failed. Errors are logged,
// the caller already has one to report.
func Discard(ctx context.Context, s Storage, urls ...string) {
	if s == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if err := s.Delete(ctx, u); err != nil {
			log.Warnf("storage: discard %s: %v", u, err)
		}
	}
}

const MB = 1024 * 1024

// FileRule bounds an upload by size and extension.
type FileRule struct {
	MaxSize int64
	Exts    []string
}

var (
	ProfilePictureRule  = FileRule{MaxSize: 5 * MB, Exts: []string{".jpg", ".jpeg", ".png", ".gif"}}
	PortfolioMediaRule  = FileRule{MaxSize: 5 * MB, Exts: []string{".jpg", ".jpeg", ".png", ".gif", ".pdf"}}
	GalleryImageRule    = FileRule{MaxSize: 5 * MB, Exts: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}}
	GalleryVideoRule    = FileRule{MaxSize: 50 * MB, Exts: []string{".mp4", ".mov", ".webm"}}
	OrderAttachmentRule = FileRule{MaxSize: 10 * MB, Exts: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png", ".zip", ".rar"}}
	ChatAttachmentRule  = FileRule{MaxSize: 10 * MB, Exts: []string{".jpg", ".jpeg", ".png", ".pdf", ".docx", ".mp4"}}
)

// Check returns a field-keyed validation error when fh breaks the rule.
func (r FileRule) Check(field string, fh *multipart.FileHeader) error {
	if fh == nil || fh.Size <= 0 {
		return apperr.Field(field, "File is empty")
	}
	if fh.Size > r.MaxSize {
		return apperr.Field(field, fmt.Sprintf("File size must not exceed %dMB", r.MaxSize/MB))
	}
	if !r.AllowsName(fh.Filename) {
		return apperr.Field(field, "Unsupported file type. Allowed: "+strings.Join(r.Exts, ", "))
	}
	return nil
}

// AllowsName reports whether name carries one of the rule's extensions.
func (r FileRule) AllowsName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range r.Exts {
		if e == ext {
			return true
		}
	}
	return false
}

// objectName keeps the extension and drops the client-chosen name.
func objectName(dir string, fh *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	return strings.Trim(dir, "/") + "/" + uuid.New().String() + ext
}
