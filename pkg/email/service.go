package email

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailClient is the part of the SendGrid client the service uses
type mailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	frontendURL string
	client      mailClient
}

// NewService creates a new email service
// If sendGridAPIKey is provided, emails will be sent via SendGrid
// Otherwise, emails will be logged to console (development mode)
func NewService(fromEmail, fromName, frontendURL, sendGridAPIKey string) *Service {
	s := &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
	}

	if sendGridAPIKey != "" {
		s.client = sendgrid.NewSendClient(sendGridAPIKey)
		log.Printf("✅ Email service initialized with SendGrid")
	} else {
		log.Printf("⚠️  Email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return s
}

// Enabled reports whether emails actually leave the process
func (s *Service) Enabled() bool {
	return s.client != nil
}

// ResetURL builds the frontend link that redeems a reset token
func (s *Service) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
}

// SendPasswordResetEmail sends the reset link for token. delivered is false
// in console mode and whenever SendGrid did not accept the message.
func (s *Service) SendPasswordResetEmail(toEmail, toName, token string, ttl time.Duration) (delivered bool, err error) {
	resetURL := s.ResetURL(token)
	hours := int(ttl.Hours())

	subject := "Reset your Affiliate Bridge password"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Password Reset Request</h2>
			<p>Hi %s,</p>
			<p>We received a request to reset the password of your Affiliate Bridge account.</p>
			<p><a href="%s" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Reset Password</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p><a href="%s">%s</a></p>
			<p><strong>This link will expire in %d hours.</strong></p>
			<p>If you didn't request a password reset, you can safely ignore this email.</p>
			<p>Thanks,<br>The Affiliate Bridge Team</p>
		</body>
		</html>
	`, toName, resetURL, resetURL, resetURL, hours)

	plainText := fmt.Sprintf(`
Hi %s,

We received a request to reset the password of your Affiliate Bridge account.

%s

This link will expire in %d hours.

If you didn't request a password reset, you can safely ignore this email.

Thanks,
The Affiliate Bridge Team
	`, toName, resetURL, hours)

	if s.client == nil {
		s.logEmailToConsole(toEmail, toName, subject)
		return false, nil
	}

	if err := s.sendViaSendGrid(toEmail, toName, subject, body, plainText); err != nil {
		return false, err
	}
	return true, nil
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	response, err := s.client.Send(message)
	if err != nil {
		log.Printf("❌ SendGrid error: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		log.Printf("❌ SendGrid returned error status %d: %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	log.Printf("✅ Email sent successfully to %s (SendGrid status: %d)", toEmail, response.StatusCode)
	return nil
}

// logEmailToConsole notes an undelivered email. The action link is left out
// because it carries a live credential.
func (s *Service) logEmailToConsole(toEmail, toName, subject string) {
	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   ⚠️  Email NOT sent (development mode)")
}
