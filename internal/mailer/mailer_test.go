package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccplatform/ar-collections/internal/domain"
)

type fakeSES struct {
	lastInput *sesv2.SendEmailInput
	err       error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

func newTestMailer(api *fakeSES, dryRun bool) *Mailer {
	return &Mailer{
		client:      api,
		fromAddress: "ar@picc.example",
		fromName:    "PICC Collections",
		replyTo:     "ar@picc.example",
		dryRun:      dryRun,
		log:         logrus.WithField("component", "mailer"),
	}
}

func approvedDraft() *domain.Draft {
	return &domain.Draft{
		ID:           "d1",
		CustomerName: "Green Leaf",
		To:           []string{"dana@greenleaf.example"},
		CC:           []string{"ar@picc.example"},
		Subject:      "PICC - Green Leaf - Nabis Invoice(s) - Overdue",
		BodyHTML:     "<p>body</p>",
		Status:       domain.DraftApproved,
	}
}

func TestSend(t *testing.T) {
	api := &fakeSES{}
	m := newTestMailer(api, false)

	id, err := m.Send(context.Background(), approvedDraft())
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	require.NotNil(t, api.lastInput)
	assert.Equal(t, "PICC Collections <ar@picc.example>", aws.ToString(api.lastInput.FromEmailAddress))
	assert.Equal(t, []string{"dana@greenleaf.example"}, api.lastInput.Destination.ToAddresses)
	assert.Equal(t, []string{"ar@picc.example"}, api.lastInput.Destination.CcAddresses)
	assert.Equal(t, []string{"ar@picc.example"}, api.lastInput.ReplyToAddresses)
}

func TestSendRejectsUnapproved(t *testing.T) {
	api := &fakeSES{}
	m := newTestMailer(api, false)

	d := approvedDraft()
	d.Status = domain.DraftPending

	_, err := m.Send(context.Background(), d)
	require.Error(t, err)
	assert.Nil(t, api.lastInput, "an unapproved draft must never reach SES")
}

func TestSendRejectsEmptyRecipients(t *testing.T) {
	m := newTestMailer(&fakeSES{}, false)

	d := approvedDraft()
	d.To = nil

	_, err := m.Send(context.Background(), d)
	assert.Error(t, err)
}

func TestSendPropagatesSESError(t *testing.T) {
	api := &fakeSES{err: errors.New("throttled")}
	m := newTestMailer(api, false)

	_, err := m.Send(context.Background(), approvedDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestDryRunSkipsSES(t *testing.T) {
	api := &fakeSES{}
	m := newTestMailer(api, true)

	id, err := m.Send(context.Background(), approvedDraft())
	require.NoError(t, err)
	assert.Equal(t, "dry-run", id)
	assert.Nil(t, api.lastInput)
}
