// Package mailer sends approved drafts through AWS SES v2.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	appconfig "github.com/piccplatform/ar-collections/internal/config"
	"github.com/piccplatform/ar-collections/internal/domain"
)

// sesAPI is the slice of the SES v2 client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends draft emails. In dry-run mode it logs what it would send and
// reports success without calling SES.
type Mailer struct {
	client      sesAPI
	fromAddress string
	fromName    string
	replyTo     string
	dryRun      bool
	log         *logrus.Entry
}

// New creates an SES-backed mailer.
func New(ctx context.Context, sesCfg appconfig.SESConfig, emailCfg appconfig.EmailConfig) (*Mailer, error) {
	if emailCfg.FromAddress == "" {
		return nil, fmt.Errorf("mailer: from_address is required")
	}

	creds := credentials.NewStaticCredentialsProvider(
		sesCfg.AccessKey,
		sesCfg.SecretKey,
		"", // session token (empty for static creds)
	)
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(sesCfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Mailer{
		client:      sesv2.NewFromConfig(awsCfg),
		fromAddress: emailCfg.FromAddress,
		fromName:    emailCfg.FromName,
		replyTo:     emailCfg.ReplyTo,
		dryRun:      sesCfg.DryRun,
		log:         logrus.WithField("component", "mailer"),
	}, nil
}

// Send delivers one approved draft and returns the SES message ID.
func (m *Mailer) Send(ctx context.Context, d *domain.Draft) (string, error) {
	if d.Status != domain.DraftApproved {
		return "", fmt.Errorf("draft %s is %s, only approved drafts can be sent", d.ID, d.Status)
	}
	if len(d.To) == 0 {
		return "", fmt.Errorf("draft %s has no recipients", d.ID)
	}

	if m.dryRun {
		m.log.WithFields(logrus.Fields{
			"draft_id": d.ID,
			"to":       d.To,
			"cc":       d.CC,
			"subject":  d.Subject,
		}).Info("dry run, skipping SES send")
		return "dry-run", nil
	}

	from := m.fromAddress
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromAddress)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  d.To,
			CcAddresses:  d.CC,
			BccAddresses: d.BCC,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(d.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(d.BodyHTML)},
				},
			},
		},
	}
	if m.replyTo != "" {
		input.ReplyToAddresses = []string{m.replyTo}
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sending draft %s: %w", d.ID, err)
	}

	messageID := aws.ToString(out.MessageId)
	m.log.WithFields(logrus.Fields{
		"draft_id":   d.ID,
		"customer":   d.CustomerName,
		"message_id": messageID,
	}).Info("draft sent")
	return messageID, nil
}
