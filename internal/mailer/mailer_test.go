package mailer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(send func(receiver, subject, body string) error) (*Sender, *[]time.Duration) {
	var slept []time.Duration
	s := New(Config{Host: "smtp.example.com", Port: 465, Sender: "noreply@example.com"})
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	s.send = send
	return s, &slept
}

func TestSendVerificationCodeFirstAttempt(t *testing.T) {
	var gotReceiver, gotBody string
	sender, slept := testSender(func(receiver, subject, body string) error {
		gotReceiver, gotBody = receiver, body
		return nil
	})

	require.NoError(t, sender.SendVerificationCode("farmer@example.com", "123456"))
	assert.Equal(t, "farmer@example.com", gotReceiver)
	assert.Contains(t, gotBody, "123456")
	assert.Contains(t, gotBody, "5 minutes")
	assert.Empty(t, *slept)
}

func TestSendVerificationCodeRetries(t *testing.T) {
	attempts := 0
	sender, slept := testSender(func(receiver, subject, body string) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, sender.SendVerificationCode("farmer@example.com", "123456"))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{retryDelay, retryDelay}, *slept)
}

func TestSendVerificationCodeGivesUp(t *testing.T) {
	attempts := 0
	sender, _ := testSender(func(receiver, subject, body string) error {
		attempts++
		return errors.New("mailbox unavailable")
	})

	err := sender.SendVerificationCode("farmer@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSendVerificationCodeNoRetryOnAuthFailure(t *testing.T) {
	attempts := 0
	sender, slept := testSender(func(receiver, subject, body string) error {
		attempts++
		return errors.New("535 authentication credentials invalid")
	})

	err := sender.SendVerificationCode("farmer@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept)
}
