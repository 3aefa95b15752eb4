package services

import (
	"bytes"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/sirupsen/logrus"
)

var discussionMail = template.Must(template.New("discussion").Parse(`<p>Hi {{.Recipient}},</p>
<p><strong>{{.Actor}}</strong> responded on <a href="{{.Link}}">{{.Title}}</a>:</p>
<blockquote>{{.Body}}</blockquote>
<p style="color:#888;font-size:12px">You receive this because you take part in this discussion.</p>
`))

// MailService sends notification emails over SMTP. It does nothing unless all SMTP
// settings are present.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool

	log  logrus.FieldLogger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg *config.Config, log logrus.FieldLogger) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Warn("mail disabled: SMTP settings missing")
	}

	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		SiteURL:  strings.TrimRight(cfg.SiteURL, "/"),
		Enabled:  enabled,
		log:      log,
		send:     smtp.SendMail,
	}
}

// headerValue collapses all whitespace, CR and LF included, into single spaces so a
// value cannot start a new header line.
func headerValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

func (s *MailService) message(to []string, subject, body string) []byte {
	contentType := "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n"
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: Quill <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s",
		headerValue(strings.Join(to, ",")),
		headerValue(s.From),
		mime.QEncoding.Encode("utf-8", headerValue(subject)),
		contentType, body))
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		entry := s.log.WithFields(logrus.Fields{"to": to, "subject": subject})
		if err := s.send(addr, auth, s.From, to, s.message(to, subject, body)); err != nil {
			entry.WithError(err).Error("send mail failed")
			return
		}
		entry.Info("mail sent")
	}()
}

func (s *MailService) renderDiscussion(recipient, actor *models.User, article *models.Article, body string) (string, error) {
	var buf bytes.Buffer
	err := discussionMail.Execute(&buf, map[string]string{
		"Recipient": recipient.Username,
		"Actor":     actor.Username,
		"Title":     article.Title,
		"Link":      fmt.Sprintf("%s/articles/%d", s.SiteURL, article.ID),
		"Body":      body,
	})
	if err != nil {
		return "", fmt.Errorf("render discussion mail: %w", err)
	}
	return buf.String(), nil
}

// NotifyDiscussion mails recipient about a new comment or reply by actor.
func (s *MailService) NotifyDiscussion(recipient, actor *models.User, article *models.Article, body string) {
	if !s.Enabled || recipient.Email == "" {
		return
	}
	html, err := s.renderDiscussion(recipient, actor, article, body)
	if err != nil {
		s.log.WithError(err).Error("render mail")
		return
	}
	s.sendAsync([]string{recipient.Email}, fmt.Sprintf("%s responded on \"%s\"", actor.Username, article.Title), html)
}
