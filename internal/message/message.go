// internal/message/message.go
//
// Outbound contact email: model, sender contract, and rendering.
//
// Context
//   The gate hands a sanitized submission to a Sender once every check has
//   passed.  Sender is the narrow seam to the transactional-email provider:
//   production wires the SES implementation (ses.go), local runs and tests
//   wire LogSender.  Provider errors propagate to the gate, which maps them
//   to a generic 500; the provider's error text is logged, never returned
//   to the client.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aburnley/portfolio-api/internal/contact"
)

// Email is one outbound message.
type Email struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one email.  Implementations must be safe for concurrent
// use and must return an error on provider failure.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Render builds the notification email for a sanitized submission.  The
// visitor's address goes into Reply-To so answering is one click.
func Render(sub contact.Submission, from, to string) Email {
	subject := fmt.Sprintf("Portfolio contact from %s", sub.Name)

	text := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s\n", sub.Name, sub.Email, sub.Message)

	html := fmt.Sprintf(
		`<p><strong>Name:</strong> %s<br><strong>Email:</strong> %s</p><p>%s</p>`,
		sub.Name, sub.Email, sub.Message,
	)

	return Email{
		To:      to,
		From:    from,
		ReplyTo: sub.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	}
}

// LogSender logs the payload instead of delivering it.  Used for local
// runs when mail.provider is "log".
type LogSender struct {
	Log *zap.SugaredLogger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, msg Email) error {
	s.Log.Infow("email (log provider)",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"text_len", len(msg.Text),
	)
	return nil
}
