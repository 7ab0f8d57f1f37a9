package notify

import "context"

// SweepFinishedEvent summarizes one scheduler sweep for the operator.
type SweepFinishedEvent struct {
	At        int64  `json:"atMs"`
	Kind      string `json:"kind"`
	Processed int    `json:"processed"`
	Delivered int    `json:"delivered"`
	Pruned    int    `json:"pruned"`
	Failed    int    `json:"failed"`
}

type Notifier interface {
	NotifySweepFinished(ctx context.Context, evt SweepFinishedEvent)
}

// Nop is used when no operator channel is configured.
type Nop struct{}

func (Nop) NotifySweepFinished(context.Context, SweepFinishedEvent) {}
