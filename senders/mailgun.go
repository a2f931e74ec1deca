package senders

import (
	"context"
	"errors"
	"time"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/senders/email"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (e *mailgunSender) Platform() string { return config.PlatformEmail }

// Connect only checks the settings; mailgun has no session.
func (e *mailgunSender) Connect(ctx context.Context) error {
	if e.cfg.Mailgun.Domain == "" || e.cfg.Mailgun.APIKey == "" {
		return errors.New("mailgun domain and api key are required")
	}
	return nil
}

func (e *mailgunSender) MentionUser(userID string) string {
	return "@" + userID
}

func (e *mailgunSender) MentionGroup(groupID string) string {
	return "@" + groupID
}

func (e *mailgunSender) SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error) {
	format := &email.BountyEmailFormat{Prefix: prefix, Notification: n}
	body, err := format.Body()
	if err != nil {
		return "", &DeliveryError{Platform: e.Platform(), Destination: destinationID, Err: err}
	}
	id, err := e.send(ctx, format.Subject(), body, destinationID)
	if err != nil {
		return "", &DeliveryError{Platform: e.Platform(), Destination: destinationID, Err: err}
	}
	return id, nil
}

func (e *mailgunSender) send(ctx context.Context, subject, body, recipient string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.Client().Transport = e.transport

	// Create message with empty body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, subject, "", recipient)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(body)

	if e.cfg.Mailgun.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.Mailgun.TimeoutSecs)*time.Second)
		defer cancel()
	}

	_, id, err := mg.Send(ctx, message)
	return id, err
}
