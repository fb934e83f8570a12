package gateways

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SMTPGateway delivers mail over a plain SMTP relay.
type SMTPGateway struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPGateway builds a gateway for host:port. username may be empty for
// unauthenticated relays.
func NewSMTPGateway(addr, from, username, password string) *SMTPGateway {
	g := &SMTPGateway{addr: addr, from: from}

	if username != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		g.auth = smtp.PlainAuth("", username, password, host)
	}

	return g
}

func (g *SMTPGateway) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var payload strings.Builder

	fmt.Fprintf(&payload, "From: %s\r\n", g.from)
	fmt.Fprintf(&payload, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&payload, "Subject: %s\r\n", msg.Subject)
	payload.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	payload.WriteString(msg.Body)

	if err := smtp.SendMail(g.addr, g.auth, g.from, msg.To, []byte(payload.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
