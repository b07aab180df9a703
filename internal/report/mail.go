package report

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/zenwen/etfadvisor/config"
)

// SendMail delivers an HTML body over implicit TLS. Mainland mail
// providers (163, QQ) only accept SSL on port 465, which net/smtp's
// SendMail cannot speak, hence the manual dial.
func SendMail(cfg *config.Config, subject, body string) error {
	if !cfg.MailEnabled() {
		return fmt.Errorf("mail not configured, need SMTP_HOST, MAIL_USER, MAIL_PASS and mail_to")
	}

	recipients := splitRecipients(cfg.MailTo)
	if len(recipients) == 0 {
		return fmt.Errorf("mail_to has no valid recipients")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		cfg.MailUser, strings.Join(recipients, ","), subject, body)

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", cfg.MailUser, cfg.MailPass, cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(cfg.MailUser); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data writer: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return client.Quit()
}

// splitRecipients parses a comma separated mail_to list.
func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
