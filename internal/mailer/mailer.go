// Package mailer delivers outgoing mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/frahmantamala/expense-claims/internal"
	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp host is not configured")

type Attachment struct {
	Filename    string
	ContentType string
	// Data, when set, is attached as is. Otherwise Path is resolved through
	// the FileReader at send time.
	Data []byte
	Path string
}

type Message struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends through one SMTP relay. Port 465 uses implicit TLS, any
// other port upgrades with STARTTLS when the server offers it.
type SMTPSender struct {
	dialer dialer
	host   string
	from   string
	files  FileReader
	logger *slog.Logger
}

func NewSMTPSender(cfg internal.MailConfig, files FileReader, logger *slog.Logger) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	return &SMTPSender{
		dialer: d,
		host:   cfg.Host,
		from:   cfg.Sender(),
		files:  files,
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if s.host == "" {
		return ErrNotConfigured
	}

	m, attached := s.build(msg)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", msg.To, err)
		}
		s.logger.Info("mail sent", "to", msg.To, "attachments", attached)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", msg.To, ctx.Err())
	}
}

// build reads every attachment before the SMTP session opens. An attachment
// that cannot be read is left out of the mail; build reports how many made it.
func (s *SMTPSender) build(msg *Message) (*gomail.Message, int) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	attached := 0
	for _, att := range msg.Attachments {
		data := att.Data
		if data == nil {
			var err error
			if data, err = s.files.ReadFile(att.Path); err != nil {
				s.logger.Warn("attachment skipped", "to", msg.To, "filename", att.Filename, "error", err)
				continue
			}
		}
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}))
		}
		m.Attach(att.Filename, settings...)
		attached++
	}
	return m, attached
}
