// Package gateways holds the outbound delivery clients used by the
// messaging node handlers. Each gateway is a small interface so handlers
// stay testable without a live SMTP server or chat platform.
package gateways

import "context"

// EmailMessage is one outbound mail.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// EmailGateway delivers mail.
type EmailGateway interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ChatMessage is one outbound chat-platform post.
type ChatMessage struct {
	Channel string
	Text    string
}

// ChatGateway posts messages to a chat platform.
type ChatGateway interface {
	Post(ctx context.Context, msg ChatMessage) error
}

// Lead is one CRM lead to create.
type Lead struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Source  string
}

// CRMGateway creates leads in an external CRM and returns the remote id.
type CRMGateway interface {
	CreateLead(ctx context.Context, lead Lead) (string, error)
}
