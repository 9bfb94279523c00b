// Package notify delivers short text notifications to clients.
package notify

import (
	"context"
	"errors"
	"fmt"

	"autosnap/pkg/logger"
	"autosnap/pkg/sanitizer"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrInvalidRecipient = errors.New("invalid recipient phone number")

type Notifier interface {
	Notify(ctx context.Context, phone, body string) error
}

type noopNotifier struct {
	log *logger.Logger
}

func NewNoopNotifier(log *logger.Logger) Notifier {
	return &noopNotifier{log: log}
}

func (n *noopNotifier) Notify(_ context.Context, phone, _ string) error {
	n.log.Debug("sms disabled, dropping notification", "phone", phone)
	return nil
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type SMSNotifier struct {
	api  messageCreator
	from string
	log  *logger.Logger
}

func NewSMSNotifier(accountSID, authToken, from string, log *logger.Logger) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSNotifier{api: client.Api, from: from, log: log}
}

func (n *SMSNotifier) Notify(ctx context.Context, phone, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := sanitizer.NormalizePhone(phone)
	if to == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, phone)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.from)
	params.SetBody(body)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		n.log.Info("sms sent", "to", to, "sid", *resp.Sid)
	}
	return nil
}
