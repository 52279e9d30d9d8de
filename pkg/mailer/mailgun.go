package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends rendered emails from a fixed sender.
type Mailgun struct {
	client *mg.MailgunImpl
	Sender string
}

// NewMailgun builds a sender for domain. apiBase selects the region, e.g.
// mg.APIBaseEU; empty keeps the US endpoint.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{client: client, Sender: sender}
}

// Send returns the Mailgun message id. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, id, err := m.client.Send(c, msg)
	return id, err
}
