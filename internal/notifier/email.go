package notifier

import (
	"fmt"
	"net/smtp"
)

type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer kirim email polos via net/smtp; cukup untuk notifikasi transaksi.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
}

func (s SMTPMailer) Send(to, subject, body string) error {
	msg := []byte("Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/plain; charset=\"UTF-8\";\r\n\r\n" +
		body)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := smtp.SendMail(addr, auth, s.User, []string{to}, msg); err != nil {
		return fmt.Errorf("kirim email ke %s: %w", to, err)
	}
	return nil
}
