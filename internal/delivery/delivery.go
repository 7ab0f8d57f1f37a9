// Package delivery abstracts the channel a scheduled result is pushed to.
// The core never learns what a channel id means; it only asks the resolver
// for a target and treats any send failure as "target unreachable".
package delivery

import "context"

type Message struct {
	Text string
	// Payload optionally carries the structured result alongside the text
	// so richer targets can render it themselves.
	Payload any
}

type Target interface {
	Send(ctx context.Context, msg Message) error
}

// Resolver turns the opaque channel id stored on a subscription into a
// sendable target. A resolution failure means the channel is gone and the
// subscription referencing it is dead weight.
type Resolver interface {
	Resolve(channelID string) (Target, error)
}
