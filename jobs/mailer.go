package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text mail through the configured SMTP relay.
type Mailer struct {
	Host string
	Port int
	From string
}

// Send delivers one message. The context is consulted before dialing since
// net/smtp has no context support of its own.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(addr, nil, m.From, []string{to}, []byte(msg))
}
