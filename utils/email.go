package utils

import (
	"errors"
	"log"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendMail delivers one HTML email through SendGrid. Returns whether the
// API accepted the message.
func SendMail(to string, subject string, html string) (bool, error) {
	key := os.Getenv("SENDGRID_API_KEY")
	if key == "" {
		return false, errors.New("SENDGRID_API_KEY is not set")
	}

	from := mail.NewEmail(os.Getenv("EMAIL_FROM_NAME"), os.Getenv("EMAIL_FROM_ADDRESS"))
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), "", html)

	client := sendgrid.NewSendClient(key)
	response, err := client.Send(message)
	if err != nil {
		return false, err
	}
	return response.StatusCode < 300, nil
}

// SendPasswordResetEmail mails an admin their reset link. Failures are
// logged, not surfaced: the caller already responded.
func SendPasswordResetEmail(email string, name string, token string) {
	link := os.Getenv("DASHBOARD_URL") + "/resetpassword/" + token

	html := `
	<p>Hi ` + name + `,</p>
	<p>It looks like you forgot your password. If you did, please click
	the link below to reset it. If you did not, disregard this email.
	The link expires in 10 minutes.
	<a href="` + link + `">Reset Password</a></p>`

	if _, err := SendMail(email, "Reset your password", html); err != nil {
		log.Println("failed to send password reset email:", err)
	}
}
