package notify

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSMSWithoutSenderLogsOnly(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	s := NewTwilioSender("", "", "")
	require.NoError(t, s.SendSMS(context.Background(), "9876543210", "Your code is 123456"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "+919876543210", entry.Data["to"])
}

func TestSendSMSHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewTwilioSender("AC123", "token", "+15005550006")
	assert.ErrorIs(t, s.SendSMS(ctx, "9876543210", "hi"), context.Canceled)
}
