package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"
)

type Mail struct {
	To       string
	Subject  string
	Body     string
	ImageURL string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers mail through an authenticated SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	sendMail sendMailFunc
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := m.sendMail(addr, auth, m.from, []string{mail.To}, m.compose(mail)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(mail Mail) []byte {
	var body strings.Builder
	body.WriteString("<p>")
	body.WriteString(strings.ReplaceAll(html.EscapeString(mail.Body), "\n", "<br>"))
	body.WriteString("</p>")
	if mail.ImageURL != "" {
		fmt.Fprintf(&body, `<p><img src="%s" alt="" style="max-width:480px"></p>`, html.EscapeString(mail.ImageURL))
	}

	return []byte(
		"From: " + m.from + "\r\n" +
			"To: " + mail.To + "\r\n" +
			"Subject: " + mail.Subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body.String(),
	)
}

// LogMailer only logs messages. It is used when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.logger.Info("email captured", "to", mail.To, "subject", mail.Subject, "body", mail.Body, "image_url", mail.ImageURL)
	return nil
}
