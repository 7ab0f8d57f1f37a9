package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"genshin_assistant/internal/config"
	"genshin_assistant/internal/logbus"
)

// EmailNotifier mails sweep summaries to the operator. Sending happens on
// its own goroutine with a bounded queue; a slow or broken SMTP server
// drops summaries instead of stalling the scheduler.
type EmailNotifier struct {
	cfg config.EmailConfig
	bus *logbus.Bus

	queue  chan SweepFinishedEvent
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewEmailNotifier(cfg config.EmailConfig, bus *logbus.Bus) *EmailNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &EmailNotifier{
		cfg:    cfg,
		bus:    bus,
		queue:  make(chan SweepFinishedEvent, 32),
		cancel: cancel,
	}
	n.wg.Add(1)
	go n.loop(ctx)
	return n
}

func (n *EmailNotifier) NotifySweepFinished(_ context.Context, evt SweepFinishedEvent) {
	select {
	case n.queue <- evt:
	default:
		n.bus.Log("warn", "sweep summary mail dropped, queue full", nil)
	}
}

func (n *EmailNotifier) Close() {
	n.once.Do(func() {
		n.cancel()
		n.wg.Wait()
	})
}

func (n *EmailNotifier) loop(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-n.queue:
			if err := n.send(evt); err != nil {
				n.bus.Log("warn", "sweep summary mail failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

func (n *EmailNotifier) send(evt SweepFinishedEvent) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("[assistant] %s sweep: %d processed, %d pruned", evt.Kind, evt.Processed, evt.Pruned))
	m.SetBody("text/plain", fmt.Sprintf(
		"sweep %s finished at %s\nprocessed: %d\ndelivered: %d\nfailed: %d\npruned: %d\n",
		evt.Kind,
		time.UnixMilli(evt.At).Format(time.RFC3339),
		evt.Processed, evt.Delivered, evt.Failed, evt.Pruned,
	))

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	return d.DialAndSend(m)
}
