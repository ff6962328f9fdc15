package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestFileRuleCheck(t *testing.T) {
	ok := fileHeader(t, "brief.PDF", []byte("%PDF-1.4"))
	assert.NoError(t, OrderAttachmentRule.Check("file", ok))

	exe := fileHeader(t, "setup.exe", []byte("MZ"))
	err := apperr.As(OrderAttachmentRule.Check("file", exe))
	assert.Equal(t, apperr.KindValidation, err.Kind)
	assert.Contains(t, err.Fields["file"][0], "Unsupported file type")

	big := fileHeader(t, "huge.png", bytes.Repeat([]byte{1}, 2*MB+1))
	small := FileRule{MaxSize: 2 * MB, Exts: []string{".png"}}
	err = apperr.As(small.Check("picture", big))
	assert.Contains(t, err.Fields["picture"][0], "2MB")

	assert.Error(t, small.Check("picture", nil))
}

func TestLocalSave(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, "/uploads/")

	url, err := l.Save(context.Background(), "orders/abc", fileHeader(t, "notes.txt", []byte("hello")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/orders/abc/"))
	assert.True(t, strings.HasSuffix(url, ".txt"))

	rel := strings.TrimPrefix(url, "/uploads/")
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestLocalDelete(t *testing.T) {
	root := t.TempDir()
	l := NewLocal(root, "/uploads")
	ctx := context.Background()

	url, err := l.Save(ctx, "gigs/gallery", fileHeader(t, "shot.png", []byte("png")))
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, url))

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/"))))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, l.Delete(ctx, url), "deleting twice is fine")
	assert.Error(t, l.Delete(ctx, "/uploads/../../etc/passwd"))
	assert.Error(t, l.Delete(ctx, "https://elsewhere.example/x.png"))
}

func TestS3ObjectKey(t *testing.T) {
	s := &S3{Bucket: "gigs-media"}
	key, err := s.objectKey("https://gigs-media.s3.eu-west-1.amazonaws.com/gigs/gallery/a.png")
	require.NoError(t, err)
	assert.Equal(t, "gigs/gallery/a.png", key)

	key, err = s.objectKey("http://localhost:9000/gigs-media/chat/attachments/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "chat/attachments/b.pdf", key)

	_, err = s.objectKey("https://gigs-media.s3.amazonaws.com/")
	assert.Error(t, err)
}

type recordingStore struct {
	deleted []string
	fail    bool
}

func (r *recordingStore) Save(context.Context, string, *multipart.FileHeader) (string, error) {
	return "", nil
}

func (r *recordingStore) Delete(_ context.Context, url string) error {
	r.deleted = append(r.deleted, url)
	if r.fail {
		return os.ErrPermission
	}
	return nil
}

func TestDiscard(t *testing.T) {
	r := &recordingStore{fail: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	Discard(ctx, r, "/uploads/a.png", "/uploads/b.png")
	assert.Equal(t, []string{"/uploads/a.png", "/uploads/b.png"}, r.deleted)

	assert.NotPanics(t, func() { Discard(ctx, nil, "/uploads/c.png") })
}
