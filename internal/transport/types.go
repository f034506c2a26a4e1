package transport

import "context"

// Update is one inbound chat event. Only plain messages are consumed;
// the bot has no inline UI.
type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	// DisablePreview suppresses link previews (assignment URLs would
	// otherwise expand into cards).
	DisablePreview bool
}

// Adapter is the chat transport. Start forwards inbound updates to out
// until the context is cancelled; sends may be called from any goroutine.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
