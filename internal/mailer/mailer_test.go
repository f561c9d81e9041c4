package mailer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/frahmantamala/expense-claims/internal"
	"github.com/frahmantamala/expense-claims/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/gomail.v2"
)

func TestMailer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Mailer Suite")
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type mapFiles map[string][]byte

func (m mapFiles) ReadFile(path string) ([]byte, error) {
	if data, ok := m[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

var _ = Describe("SMTPSender", func() {
	var (
		dialer *fakeDialer
		sender *SMTPSender
		cfg    internal.MailConfig
	)

	BeforeEach(func() {
		cfg = internal.MailConfig{Host: "smtp.test", Port: 587, Username: "bot@acme.test", Password: "secret"}
		dialer = &fakeDialer{}
		sender = NewSMTPSender(cfg, mapFiles{"uploads/r1.png": []byte("png-bytes")}, logger.Discard())
		sender.dialer = dialer
	})

	It("uses implicit TLS on port 465 only", func() {
		cfg.Port = 465
		tls := NewSMTPSender(cfg, mapFiles{}, logger.Discard())
		Expect(tls.dialer.(*gomail.Dialer).SSL).To(BeTrue())

		cfg.Port = 587
		plain := NewSMTPSender(cfg, mapFiles{}, logger.Discard())
		Expect(plain.dialer.(*gomail.Dialer).SSL).To(BeFalse())
	})

	It("sends the summary with attachments from the receipt store", func() {
		// Given
		msg := &Message{
			To:      "finance@acme.test",
			Subject: "Expenses",
			Text:    "2024-03-15 | Taxi",
			Attachments: []Attachment{
				{Filename: "taxi.png", ContentType: "image/png", Path: "uploads/r1.png"},
			},
		}

		// When
		err := sender.Send(context.Background(), msg)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(dialer.sent).To(HaveLen(1))
		Expect(dialer.sent[0].GetHeader("From")).To(Equal([]string{"bot@acme.test"}))
		Expect(dialer.sent[0].GetHeader("To")).To(Equal([]string{"finance@acme.test"}))

		var raw bytes.Buffer
		_, err = dialer.sent[0].WriteTo(&raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.String()).To(ContainSubstring(`filename="taxi.png"`))
		Expect(raw.String()).To(ContainSubstring("2024-03-15 | Taxi"))
	})

	It("leaves out an attachment it cannot read and still sends", func() {
		msg := &Message{To: "finance@acme.test", Text: "March", Attachments: []Attachment{
			{Filename: "gone.png", Path: "uploads/gone.png"},
			{Filename: "taxi.png", ContentType: "image/png", Path: "uploads/r1.png"},
		}}

		err := sender.Send(context.Background(), msg)

		Expect(err).NotTo(HaveOccurred())
		Expect(dialer.sent).To(HaveLen(1))
		var raw bytes.Buffer
		_, err = dialer.sent[0].WriteTo(&raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.String()).To(ContainSubstring(`filename="taxi.png"`))
		Expect(raw.String()).NotTo(ContainSubstring("gone.png"))
	})

	It("attaches preloaded data without touching the store", func() {
		msg := &Message{To: "finance@acme.test", Attachments: []Attachment{
			{Filename: "inline.pdf", ContentType: "application/pdf", Data: []byte("%PDF"), Path: "uploads/missing.pdf"},
		}}

		Expect(sender.Send(context.Background(), msg)).To(Succeed())

		var raw bytes.Buffer
		_, err := dialer.sent[0].WriteTo(&raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.String()).To(ContainSubstring(`filename="inline.pdf"`))
	})

	It("wraps relay failures", func() {
		dialer.err = errors.New("535 auth failed")

		err := sender.Send(context.Background(), &Message{To: "finance@acme.test"})

		Expect(err).To(MatchError(ContainSubstring("535 auth failed")))
	})

	It("refuses to send without a host", func() {
		cfg.Host = ""
		unconfigured := NewSMTPSender(cfg, mapFiles{}, logger.Discard())

		Expect(unconfigured.Send(context.Background(), &Message{To: "x@acme.test"})).To(MatchError(ErrNotConfigured))
	})
})
