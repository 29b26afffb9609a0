// Package notify renders and delivers account emails in the background.
package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
)

// Kind identifies the email template.
type Kind string

const (
	KindPasswordReset     Kind = "password_reset"
	KindWelcome           Kind = "welcome"
	KindEmailVerification Kind = "email_verification"
)

// Message is a fully rendered email ready for a Sender.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Text    string
	HTML    string
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

type templateData struct {
	AppName   string
	AppURL    string
	Username  string
	ActionURL string
}

// Renderer turns notification requests into Messages.
type Renderer struct {
	appName     string
	frontendURL string
}

func NewRenderer(appName, frontendURL string) *Renderer {
	return &Renderer{appName: appName, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// PasswordReset links to <frontend>/reset-password?token=...
func (r *Renderer) PasswordReset(to, token string) (Message, error) {
	return r.render(KindPasswordReset, to, "Reset your password", templateData{
		ActionURL: r.link("/reset-password", token),
	})
}

func (r *Renderer) Welcome(to, username string) (Message, error) {
	return r.render(KindWelcome, to, "Welcome to "+r.appName+"!", templateData{
		Username: username,
	})
}

// EmailVerification links to <frontend>/verify-email?token=...
func (r *Renderer) EmailVerification(to, token string) (Message, error) {
	return r.render(KindEmailVerification, to, "Confirm your email address", templateData{
		ActionURL: r.link("/verify-email", token),
	})
}

func (r *Renderer) link(path, token string) string {
	return r.frontendURL + path + "?" + url.Values{"token": {token}}.Encode()
}

func (r *Renderer) render(kind Kind, to, subject string, data templateData) (Message, error) {
	data.AppName = r.appName
	data.AppURL = r.frontendURL

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, string(kind)+".txt.tmpl", data); err != nil {
		return Message{}, err
	}
	if err := htmlTemplates.ExecuteTemplate(&html, string(kind)+".html.tmpl", data); err != nil {
		return Message{}, err
	}

	return Message{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
