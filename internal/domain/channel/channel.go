package channel

import "context"

// Name identifies a delivery channel in the channel registry.
type Name string

const (
	NameEmail Name = "email"
	NameInApp Name = "in_app"
	NameSMS   Name = "sms"
)

// Channel is a registry row from the 'channels' table. Only email is
// dispatched by the current engine; in_app and sms are schema-reserved.
type Channel struct {
	ID       int64
	Name     Name
	IsActive bool
}

// Result is the structured outcome of a single dispatch attempt.
type Result struct {
	Success           bool
	ProviderMessageID string
	ErrorDetail       string
}

// Dispatcher delivers one rendered message to one recipient. Implementations
// perform exactly one attempt (retry policy belongs to the caller), must be
// time-bounded, and report failure through the Result rather than panicking.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body, displayName string) Result
}
