package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderVerification(t *testing.T) {
	body, err := Render("verify_email.html", EmailData{Name: "Ada", ActionURL: "http://localhost:3000/verify?token=abc"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Ada,")
	assert.Contains(t, body, "http://localhost:3000/verify?token=abc")
}

func TestRenderFallsBackWithoutName(t *testing.T) {
	body, err := Render("reset_password.html", EmailData{ActionURL: "http://x/reset"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi there,")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing.html", EmailData{})
	assert.Error(t, err)
}

func TestLogMailerNeverFails(t *testing.T) {
	var m Mailer = Log{}
	assert.NoError(t, m.SendVerification("a@b.io", EmailData{ActionURL: "u"}))
	assert.NoError(t, m.SendPasswordReset("a@b.io", EmailData{ActionURL: "u"}))
}
