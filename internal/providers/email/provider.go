// Package email delivers invoice notifications.
package email

import (
	"context"
	"io"
)

// Attachment is an inline file sent with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string, attachments ...Attachment) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string, attachments ...Attachment) error {
	return nil
}
