// Package mailer sends account emails (verification, password reset).
package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type EmailData struct {
	Name      string
	ActionURL string
}

type Mailer interface {
	SendVerification(to string, data EmailData) error
	SendPasswordReset(to string, data EmailData) error
}

// SMTP delivers through a plain-auth relay.
type SMTP struct {
	Addr     string // host:port
	Host     string
	From     string
	Password string
}

func (m *SMTP) SendVerification(to string, data EmailData) error {
	return m.send(to, "Verify your email address", "verify_email.html", data)
}

func (m *SMTP) SendPasswordReset(to string, data EmailData) error {
	return m.send(to, "Reset your password", "reset_password.html", data)
}

func (m *SMTP) send(to, subject, tmpl string, data EmailData) error {
	body, err := Render(tmpl, data)
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		m.From, to, subject, body,
	)
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	if err := smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func Render(tmpl string, data EmailData) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

// Log writes links to the application log; used when SMTP is not configured.
type Log struct{}

func (Log) SendVerification(to string, data EmailData) error {
	log.Infof("verification email for %s: %s", to, data.ActionURL)
	return nil
}

func (Log) SendPasswordReset(to string, data EmailData) error {
	log.Infof("password reset email for %s: %s", to, data.ActionURL)
	return nil
}
