package account

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

func profileForm(t *testing.T, fields map[string]string, files map[string]string) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form
}

func TestDecodeProfileForm(t *testing.T) {
	form := profileForm(t, map[string]string{
		"profile_title":   "Illustrator",
		"skills":          `[{"name":"Inking","level":"expert"}]`,
		"portfolio_items": `[{"title":"Zine","description":"A twelve page zine"},{"title":"Site","description":"Portfolio website","url":"https://example.com"}]`,
	}, map[string]string{"portfolio_items[0].media": "zine.pdf"})

	in, err := DecodeProfileForm(form)
	require.NoError(t, err)
	assert.Equal(t, "Illustrator", *in.ProfileTitle)
	require.NotNil(t, in.Skills)
	assert.Len(t, *in.Skills, 1)
	assert.Nil(t, in.Bio)

	items := *in.PortfolioItems
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Media)
	assert.Equal(t, "zine.pdf", items[0].Media.Filename)
	assert.Nil(t, items[1].Media)
	assert.NoError(t, ValidateProfile(in, 2026))
}

func TestDecodeProfileFormRejectsStrayFilesAndBadJSON(t *testing.T) {
	form := profileForm(t, map[string]string{
		"portfolio_items": `[{"title":"Zine","description":"A twelve page zine"}]`,
		"educations":      `{not json`,
	}, map[string]string{"portfolio_items[3].media": "x.png"})

	_, err := DecodeProfileForm(form)
	e := apperr.As(err)
	assert.Contains(t, e.Fields, "educations")
	assert.Contains(t, e.Fields, "portfolio_items[3].media")
}

func TestValidateProfileChecksPortfolioMedia(t *testing.T) {
	traversal := ProfileInput{PortfolioItems: &[]PortfolioItemInput{
		{Title: "My work", Description: "Ten chars or more", MediaFile: "../../../etc/passwd.exe"},
	}}
	assert.Contains(t, apperr.As(ValidateProfile(traversal, 2026)).Fields, "portfolio_items[0].media_file")

	form := profileForm(t, nil, map[string]string{"file": "tool.exe"})
	upload := ProfileInput{PortfolioItems: &[]PortfolioItemInput{
		{Title: "My work", Description: "Ten chars or more", Media: form.File["file"][0]},
	}}
	e := apperr.As(ValidateProfile(upload, 2026))
	assert.Contains(t, e.Fields, "portfolio_items[0].media")
	assert.NotContains(t, e.Fields, "portfolio_items[0].url", "an upload satisfies the url-or-media rule")
}
