package mail

import (
	"fmt"
	"strings"

	"github.com/trendfox/TrendFox/internal/pkg/env"
)

// SendLoginLink mails a single-use magic login link to the user.
func SendLoginLink(to string, token string) error {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")
	link := fmt.Sprintf("%s/login?token=%s", base, token)

	body := fmt.Sprintf(
		"<p>Hi,</p>"+
			"<p>Click the link below to sign in to TrendFox. The link is valid for 15 minutes and can be used once.</p>"+
			"<p><a href=\"%s\">%s</a></p>"+
			"<p>If you did not request this, you can ignore this email.</p>",
		link, link,
	)

	return SendMail(to, "Your TrendFox login link", body)
}
