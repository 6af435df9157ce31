package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// IndiaPrefix is prepended to the 10-digit numbers the API accepts.
const IndiaPrefix = "+91"

// TwilioSender delivers SMS through Twilio. Without a sender number it only
// logs the message, which is what local development runs with.
type TwilioSender struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, fromNumber: fromNumber}
}

func (t *TwilioSender) SendSMS(ctx context.Context, phone, message string) error {
	to := IndiaPrefix + phone
	if t.fromNumber == "" {
		logrus.WithFields(logrus.Fields{"to": to, "message": message}).Warn("SMS sender not configured, message logged only")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
