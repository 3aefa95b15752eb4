package services

import (
	"mime"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailServiceDisabledWithoutSMTP(t *testing.T) {
	s := NewMailService(&config.Config{SMTPHost: "smtp.example.com"}, logging.Discard())
	assert.False(t, s.Enabled)

	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("disabled mailer must not send")
		return nil
	}
	s.NotifyDiscussion(&models.User{Email: "a@example.com"}, &models.User{}, &models.Article{}, "hi")
}

func smtpConfig() *config.Config {
	return &config.Config{
		SMTPHost: "smtp.example.com",
		SMTPPort: "587",
		SMTPUser: "user",
		SMTPPass: "pass",
		SMTPFrom: "noreply@example.com",
		SiteURL:  "https://blog.example.com/",
	}
}

func enabledMailService(t *testing.T) (*MailService, <-chan string) {
	t.Helper()
	s := NewMailService(smtpConfig(), logging.Discard())
	require.True(t, s.Enabled)

	msgs := make(chan string, 1)
	s.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		msgs <- string(msg)
		return nil
	}
	return s, msgs
}

func TestMailServiceNotifyDiscussion(t *testing.T) {
	s := NewMailService(smtpConfig(), logging.Discard())
	require.True(t, s.Enabled)

	type sent struct {
		addr string
		to   []string
		msg  string
	}
	got := make(chan sent, 1)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		got <- sent{addr: addr, to: to, msg: string(msg)}
		return nil
	}

	recipient := &models.User{Username: "alice", Email: "alice@example.com"}
	actor := &models.User{Username: "bob"}
	article := &models.Article{ID: 7, Title: "Go & you"}
	s.NotifyDiscussion(recipient, actor, article, "<script>x</script>")

	select {
	case m := <-got:
		assert.Equal(t, "smtp.example.com:587", m.addr)
		assert.Equal(t, []string{"alice@example.com"}, m.to)
		assert.Contains(t, m.msg, "Subject: bob responded on")
		assert.Contains(t, m.msg, "https://blog.example.com/articles/7")
		assert.Contains(t, m.msg, "Go &amp; you")
		assert.False(t, strings.Contains(m.msg, "<script>"))
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not sent")
	}
}

// headers returns the header lines of a raw message.
func headers(msg string) []string {
	head, _, _ := strings.Cut(msg, "\r\n\r\n")
	return strings.Split(head, "\r\n")
}

func TestMailServiceHeadersCannotBeInjected(t *testing.T) {
	s, msgs := enabledMailService(t)

	recipient := &models.User{Username: "alice", Email: "alice@example.com"}
	actor := &models.User{Username: "bob\nCc: x@evil.test"}
	article := &models.Article{ID: 3, Title: "Hi\r\nBcc: victim@evil.test"}
	s.NotifyDiscussion(recipient, actor, article, "hello")

	select {
	case m := <-msgs:
		lines := headers(m)
		for _, line := range lines {
			assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
			assert.False(t, strings.HasPrefix(line, "Cc:"), line)
		}
		assert.Contains(t, lines, `Subject: bob Cc: x@evil.test responded on "Hi Bcc: victim@evil.test"`)
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not sent")
	}
}

func TestMailServiceEncodesNonASCIISubject(t *testing.T) {
	s, msgs := enabledMailService(t)

	recipient := &models.User{Username: "alice", Email: "alice@example.com"}
	s.NotifyDiscussion(recipient, &models.User{Username: "bob"}, &models.Article{ID: 4, Title: "Café"}, "hello")

	select {
	case m := <-msgs:
		var subject string
		for _, line := range headers(m) {
			if v, ok := strings.CutPrefix(line, "Subject: "); ok {
				subject = v
			}
		}
		require.NotEmpty(t, subject)
		assert.True(t, strings.HasPrefix(subject, "=?utf-8?q?"), subject)
		decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
		require.NoError(t, err)
		assert.Equal(t, `bob responded on "Café"`, decoded)
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not sent")
	}
}
