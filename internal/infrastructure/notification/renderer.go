package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var subjects = map[Template]string{
	TemplateVerificationCode:  "Verify Your Email - %s",
	TemplateWelcome:           "Welcome to %s!",
	TemplatePasswordResetCode: "Password Reset Verification Code - %s",
	TemplatePasswordChanged:   "Password Changed Successfully - %s",
}

// Renderer turns a Message into an Email using the embedded templates
type Renderer struct {
	appName string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// NewRenderer parses every embedded template
func NewRenderer(appName string) (*Renderer, error) {
	text, err := texttemplate.New("text").Option("missingkey=zero").ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.New("html").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{appName: appName, text: text, html: html}, nil
}

// Render builds the subject and both bodies for msg
func (r *Renderer) Render(msg Message) (*Email, error) {
	subject, ok := subjects[msg.Template]
	if !ok {
		return nil, fmt.Errorf("unknown notification template %q", msg.Template)
	}

	data := map[string]any{
		"AppName": r.appName,
		"Name":    msg.Name,
		"Email":   msg.To,
	}
	for k, v := range msg.Data {
		data[k] = v
	}

	var textBody, htmlBody bytes.Buffer
	if err := r.text.ExecuteTemplate(&textBody, string(msg.Template)+".txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", msg.Template, err)
	}
	if err := r.html.ExecuteTemplate(&htmlBody, string(msg.Template)+".html.tmpl", data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", msg.Template, err)
	}

	return &Email{
		To:      msg.To,
		ToName:  msg.Name,
		Subject: fmt.Sprintf(subject, r.appName),
		Text:    textBody.String(),
		HTML:    htmlBody.String(),
	}, nil
}
