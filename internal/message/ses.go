// internal/message/ses.go
//
// Amazon SES implementation of Sender.
//
// Context
//   The production site fronts this service with a CDN and delivers mail
//   through SES, so the sender is a thin wrapper over the sesv2 SendEmail
//   call.  Credentials come from the default AWS chain (environment,
//   shared config, or instance role); only the region is configured here.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESSender delivers mail through Amazon SES.  Safe for concurrent use.
type SESSender struct {
	client *sesv2.Client
}

// NewSES builds an SESSender for region using the default credential chain.
func NewSES(ctx context.Context, region string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg)}, nil
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, msg Email) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		ReplyToAddresses: []string{msg.ReplyTo},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Text)},
					Html: &types.Content{Data: aws.String(msg.HTML)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: send: %w", err)
	}
	return nil
}
