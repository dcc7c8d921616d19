package email

import "context"

// Sender delivers hub emails. The only transactional mail the hub sends
// today is the magic-link login message.
type Sender interface {
	SendMagicLink(ctx context.Context, to, serviceName, link string) error
}

// Config holds sender configuration.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
}
