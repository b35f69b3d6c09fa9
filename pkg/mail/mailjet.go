package mail

import (
	"context"
	"fmt"

	mailjet "github.com/mailjet/mailjet-apiv3-go"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/pkg/config"
)

// Sender delivers a single email message. Implementations are expected to be
// safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// MailjetSender sends email through the Mailjet API.
type MailjetSender struct {
	client      *mailjet.Client
	senderEmail string
	senderName  string
	logger      *zap.Logger
}

// NewMailjetSender constructs a sender from config. When API keys are absent
// the sender logs instead of sending, which keeps local development working
// without credentials.
func NewMailjetSender(cfg config.MailConfig, logger *zap.Logger) *MailjetSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	var client *mailjet.Client
	if cfg.PublicKey != "" && cfg.PrivateKey != "" {
		client = mailjet.NewMailjetClient(cfg.PublicKey, cfg.PrivateKey)
	}
	return &MailjetSender{
		client:      client,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		logger:      logger,
	}
}

// Send delivers one HTML email to a single recipient.
func (s *MailjetSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	if s.client == nil {
		s.logger.Sugar().Infow("mail delivery skipped, no credentials", "to", toEmail, "subject", subject)
		return nil
	}

	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From: &mailjet.RecipientV31{
			Email: s.senderEmail,
			Name:  s.senderName,
		},
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: toEmail, Name: toName},
		},
		Subject:  subject,
		HTMLPart: htmlBody,
	}}}

	if _, err := s.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("send mail to %s: %w", toEmail, err)
	}
	return nil
}
