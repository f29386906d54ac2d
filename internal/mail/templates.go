package mail

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type templateData struct {
	Username string
	Email    string
	Token    string
	Secret   string
}

// NewConfirmationMessage renders the email-confirmation message carrying
// the confirm token for email.
func NewConfirmationMessage(email, username, confirmToken string) (Message, error) {
	html, err := render("confirm.html", templateData{Username: username, Email: email, Token: confirmToken})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Verification email for Contact_sss", HTML: html}, nil
}

// NewResetMessage renders the password-reset message carrying the new
// credential and the reset token for email.
func NewResetMessage(email, username, secret, resetToken string) (Message, error) {
	html, err := render("reset.html", templateData{Username: username, Email: email, Token: resetToken, Secret: secret})
	if err != nil {
		return Message{}, err
	}
	return Message{To: email, Subject: "Reset email from Contact_sss", HTML: html}, nil
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
