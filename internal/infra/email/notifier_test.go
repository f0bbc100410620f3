package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 1025, "noreply@pluta.local", "ops@pluta.local", zap.NewNop())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := n.NotifyFailure(context.Background(), "vid-1", "lobby.mp4", "engine timeout")
	require.NoError(t, err)

	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, []string{"ops@pluta.local"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Pluta - Video Analysis Failed [Video vid-1]")
	assert.Contains(t, gotMsg, "File: lobby.mp4")
	assert.Contains(t, gotMsg, "Error: engine timeout")
}

func TestNotifyFailureSendError(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 1025, "noreply@pluta.local", "ops@pluta.local", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), "vid-1", "lobby.mp4", "boom")
	assert.ErrorContains(t, err, "send email")
}
