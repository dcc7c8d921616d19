package email

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// ResendSender implements Sender using Resend.
type ResendSender struct {
	client *resend.Client
	config *Config
}

func NewResendSender(config *Config) (*ResendSender, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	return &ResendSender{
		client: resend.NewClient(config.APIKey),
		config: config,
	}, nil
}

// SendMagicLink sends a one-time sign-in link. The link embeds the code
// but never any signing material.
func (s *ResendSender) SendMagicLink(ctx context.Context, to, serviceName, link string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{to},
		Subject: fmt.Sprintf("Sign in to %s", serviceName),
		Html:    MagicLinkTemplate(serviceName, link),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send magic link email to %s: %v", to, err)
		return fmt.Errorf("failed to send magic link email: %w", err)
	}

	log.Printf("Magic link email sent to %s (ID: %s)", to, sent.Id)
	return nil
}
