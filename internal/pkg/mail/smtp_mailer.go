package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/trendfox/TrendFox/internal/pkg/env"
)

// SendMail delivers an HTML mail via SMTP. Auth is optional so local
// mailcatcher setups work without credentials.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = defaultSender()
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	msg := buildMessage(sender, to, subject, body)

	err := smtp.SendMail(addr, auth, envelopeAddress(sender), []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// defaultSender derives a no-reply address from the public domain so mails
// carry the site's host even without explicit SMTP configuration.
func defaultSender() string {
	host := "localhost"
	if raw := env.GetEnv("PUBLIC_DOMAIN", ""); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	return fmt.Sprintf("TrendFox <no-reply@%s>", host)
}

// envelopeAddress strips an optional display name down to the bare address
// required by the SMTP MAIL FROM command.
func envelopeAddress(sender string) string {
	if start := strings.LastIndex(sender, "<"); start >= 0 {
		if end := strings.LastIndex(sender, ">"); end > start {
			return sender[start+1 : end]
		}
	}
	return sender
}

func buildMessage(sender, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}
