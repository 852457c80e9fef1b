package email

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	sent    []*mail.SGMailV3
	status  int
	sendErr error
}

func (f *fakeClient) Send(m *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, m)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &rest.Response{StatusCode: f.status, Body: "status"}, nil
}

func TestNewService_ConsoleMode(t *testing.T) {
	svc := NewService("from@example.com", "Affiliate Bridge", "https://app.example.com", "")
	assert.False(t, svc.Enabled())
	assert.Equal(t, "from@example.com", svc.fromEmail)
	assert.Equal(t, "Affiliate Bridge", svc.fromName)
}

func TestNewService_SendGridMode(t *testing.T) {
	svc := NewService("from@example.com", "Affiliate Bridge", "https://app.example.com", "SG.test-key")
	assert.True(t, svc.Enabled())
}

func TestResetURL(t *testing.T) {
	svc := NewService("from@example.com", "Affiliate Bridge", "https://app.example.com", "")
	assert.Equal(t, "https://app.example.com/reset-password?token=abc_-123", svc.ResetURL("abc_-123"))
}

func TestSendPasswordResetEmail_ConsoleMode(t *testing.T) {
	svc := NewService("from@example.com", "Affiliate Bridge", "https://app.example.com", "")

	delivered, err := svc.SendPasswordResetEmail("user@example.com", "Test User", "reset-token-123", 24*time.Hour)
	assert.NoError(t, err, "Console mode should not error")
	assert.False(t, delivered)
}

func TestSendPasswordResetEmail_SendGrid(t *testing.T) {
	t.Run("Delivered", func(t *testing.T) {
		client := &fakeClient{status: 202}
		svc := &Service{fromEmail: "from@example.com", fromName: "Affiliate Bridge", frontendURL: "https://app.example.com", client: client}

		delivered, err := svc.SendPasswordResetEmail("user@example.com", "Test User", "tok", 24*time.Hour)

		require.NoError(t, err)
		assert.True(t, delivered)
		require.Len(t, client.sent, 1)
		msg := client.sent[0]
		assert.Equal(t, "Reset your Affiliate Bridge password", msg.Subject)
		require.Len(t, msg.Content, 2)
		assert.True(t, strings.Contains(msg.Content[1].Value, "https://app.example.com/reset-password?token=tok"))
		assert.True(t, strings.Contains(msg.Content[0].Value, "24 hours"))
	})

	t.Run("Rejected status", func(t *testing.T) {
		svc := &Service{fromEmail: "from@example.com", client: &fakeClient{status: 401}}

		delivered, err := svc.SendPasswordResetEmail("user@example.com", "Test User", "tok", time.Hour)
		assert.Error(t, err)
		assert.False(t, delivered)
	})

	t.Run("Transport error", func(t *testing.T) {
		svc := &Service{fromEmail: "from@example.com", client: &fakeClient{sendErr: errors.New("dial tcp: timeout")}}

		delivered, err := svc.SendPasswordResetEmail("user@example.com", "Test User", "tok", time.Hour)
		assert.Error(t, err)
		assert.False(t, delivered)
	})
}
