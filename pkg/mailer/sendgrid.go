package mailer

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends account lifecycle email.
type Mailer interface {
	SendVerificationEmail(toName, toEmail, token string) error
}

// SendgridMailer delivers transactional email through the SendGrid API.
type SendgridMailer struct {
	key       string
	from      *sgmail.Email
	clientURL string
}

// NewSendgridMailer constructs a mailer with the given API key and sender.
func NewSendgridMailer(key, fromName, fromEmail, clientURL string) *SendgridMailer {
	return &SendgridMailer{
		key:       key,
		from:      sgmail.NewEmail(fromName, fromEmail),
		clientURL: clientURL,
	}
}

// SendVerificationEmail sends the account verification email with a link
// the recipient follows to activate their account.
func (m *SendgridMailer) SendVerificationEmail(toName, toEmail, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email/%s", m.clientURL, token)

	plain := fmt.Sprintf(
		"Hi %s,\n\nThank you for registering with EduQuiz. Verify your email address by visiting:\n\n%s\n\nThis link expires in 24 hours. If you didn't create an account, ignore this email.\n",
		toName, verificationURL,
	)
	html := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to EduQuiz!</h2>
  <p>Hi %s,</p>
  <p>Thank you for registering with EduQuiz. Please verify your email address by clicking the link below:</p>
  <p><a href="%s">Verify Email</a></p>
  <p>Or copy and paste this link in your browser:</p>
  <p>%s</p>
  <p>This link will expire in 24 hours.</p>
  <p>If you didn't create an account, please ignore this email.</p>
</div>`,
		toName, verificationURL, verificationURL,
	)

	message := sgmail.NewSingleEmail(m.from, "Verify Your Email - EduQuiz", sgmail.NewEmail(toName, toEmail), plain, html)
	resp, err := sendgrid.NewSendClient(m.key).Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NopMailer discards outgoing mail. Used when mail delivery is disabled.
type NopMailer struct{}

// SendVerificationEmail implements the mailer contract without sending.
func (NopMailer) SendVerificationEmail(string, string, string) error { return nil }
