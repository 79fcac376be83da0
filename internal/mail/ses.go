// Package mail sends operator notifications through Amazon SES.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/villarosa/admin-api/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, textBody string) error
}

// SESMailer is a thin SES v2 wrapper. With no from-address configured it
// degrades to a no-op so local environments need no AWS credentials.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

func NewSESMailer(ctx context.Context, cfg config.EmailConfig) (*SESMailer, error) {
	if cfg.FromEmail == "" {
		slog.Info("email notifications disabled: no from address configured")
		return &SESMailer{enabled: false}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		enabled:   true,
	}, nil
}

func (m *SESMailer) Enabled() bool { return m.enabled }

func (m *SESMailer) Send(ctx context.Context, to, subject, textBody string) error {
	if !m.enabled {
		slog.Debug("skipping email send, mailer disabled", "to", to, "subject", subject)
		return nil
	}
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
