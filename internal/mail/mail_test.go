package mail

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/config"
)

func TestGenerateOTP(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	seen := map[string]bool{}
	for range 50 {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, otp)
		seen[otp] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestOTPEqual(t *testing.T) {
	assert.True(t, OTPEqual("012345", "012345"))
	assert.False(t, OTPEqual("012345", "012346"))
	assert.False(t, OTPEqual("012345", ""))
}

func TestGenericDefaults(t *testing.T) {
	msg, err := Generic("a@example.com", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Default Subject", msg.Subject)
	assert.Equal(t, "Default text", msg.Text)
	assert.Contains(t, msg.HTML, "Thank you for signing up!")
	assert.Contains(t, msg.HTML, "Plan-X. All rights reserved.")

	msg, err = Generic("a@example.com", "Hi", "plain", "<p>custom</p>")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "<p>custom</p>")
	assert.NotContains(t, msg.HTML, "Thank you for signing up!")
}

func TestTemplatesEscapeValues(t *testing.T) {
	msg, err := Welcome("a@example.com", "<script>x</script>")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestOTPMessage(t *testing.T) {
	msg, err := OTP("a@example.com", "004211", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", msg.To)
	assert.Contains(t, msg.HTML, "004211")
	assert.Contains(t, msg.HTML, "valid for 10 minutes")
	assert.NotContains(t, msg.Text, "004211")
}

func TestTaskAssigned(t *testing.T) {
	due := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	msg, err := TaskAssigned("b@example.com", "Bob", "Ada", "A-12", "Fix login", &due)
	require.NoError(t, err)
	assert.Equal(t, "[A-12] Fix login", msg.Subject)
	assert.Contains(t, msg.HTML, "Mar 4, 2026")

	msg, err = TaskAssigned("b@example.com", "Bob", "Ada", "A-12", "Fix login", nil)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "Due")
}

func TestNewSender(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := NewSender(config.MailConfig{}, logger)
	require.IsType(t, LogSender{}, s)
	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "hello"}))
	assert.Contains(t, buf.String(), "subject=hello")

	assert.IsType(t, &SMTPSender{}, NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587}, logger))
}

func TestSMTPSenderHonorsCanceledContext(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "127.0.0.1", Port: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}
