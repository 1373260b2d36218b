package transport

import "context"

// ChatTarget identifies where a message goes.
// ThreadID is optional (0 = main chat).
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// SendOptions tweaks outbound message formatting.
type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// MessageRef points at a delivered message.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// Sender is the outbound delivery channel.
//
// Implementations must be safe for concurrent use; the poller and the
// telegram log sink share one instance.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
