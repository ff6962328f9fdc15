package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Local writes under Root; the directory is served by app.Static at PublicBase.
type Local struct {
	Root       string
	PublicBase string
}

func NewLocal(root, publicBase string) *Local {
	return &Local{Root: root, PublicBase: strings.TrimRight(publicBase, "/")}
}

func (l *Local) Save(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	name := objectName(dir, fh)
	dst := filepath.Join(l.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return l.PublicBase + "/" + name, nil
}

// Delete removes an object Save returned. Missing files are not an error.
func (l *Local) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, l.PublicBase+"/")
	if !ok || rel == "" {
		return fmt.Errorf("%s is not a local upload", url)
	}
	root := filepath.Clean(l.Root)
	dst := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(dst, root+string(filepath.Separator)) {
		return fmt.Errorf("%s escapes the upload root", url)
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
