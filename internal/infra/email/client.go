package email

import (
	"context"
	"fmt"
	"time"

	"notification_platform/internal/domain/channel"

	"github.com/google/uuid"
	"gopkg.in/mail.v2"
)

const defaultSendTimeout = 30 * time.Second

// Client dispatches rendered notifications over SMTP. It implements
// channel.Dispatcher: one attempt per call, no internal retry, bounded by
// the configured timeout so a bad recipient cannot stall a whole pass.
type Client struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewClient(smtpHost string, smtpPort int, username, password, from string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Client{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
		timeout:  timeout,
	}
}

// Send performs a single SMTP delivery attempt. Failures are reported in the
// Result, never as a panic or an error that could abort sibling recipients.
func (c *Client) Send(ctx context.Context, to, subject, body, displayName string) channel.Result {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), c.smtpHost)

	message := mail.NewMessage()
	message.SetHeader("From", c.from)
	message.SetAddressHeader("To", to, displayName)
	message.SetHeader("Subject", subject)
	message.SetHeader("Message-ID", messageID)
	message.SetBody("text/plain", body)

	dialer := c.newDialer()

	// DialAndSend has no context support; run it in a goroutine so a pass
	// cancellation is not held hostage by a slow provider. The dialer's own
	// timeout bounds the goroutine either way.
	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(message)
	}()

	select {
	case <-ctx.Done():
		return channel.Result{ErrorDetail: fmt.Sprintf("dispatch cancelled: %v", ctx.Err())}
	case err := <-done:
		if err != nil {
			return channel.Result{ErrorDetail: err.Error()}
		}
		return channel.Result{Success: true, ProviderMessageID: messageID}
	}
}

// Ping dials the SMTP server once, for the boot readiness check.
func (c *Client) Ping(ctx context.Context) error {
	type dialResult struct {
		closer mail.SendCloser
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		closer, err := c.newDialer().Dial()
		done <- dialResult{closer: closer, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("failed to dial SMTP server: %w", res.err)
		}
		res.closer.Close()
		return nil
	}
}

func (c *Client) newDialer() *mail.Dialer {
	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)
	dialer.Timeout = c.timeout
	return dialer
}
