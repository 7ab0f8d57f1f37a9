package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"genshin_assistant/internal/config"
)

// WebhookResolver treats the channel id as a webhook URL and posts results
// to it. Discord-style webhooks accept {"content": "..."}, which is all a
// text delivery needs; the structured payload rides along under "payload"
// for targets that care.
type WebhookResolver struct {
	cfg config.DeliveryConfig
}

func NewWebhookResolver(cfg config.DeliveryConfig) *WebhookResolver {
	return &WebhookResolver{cfg: cfg}
}

func (r *WebhookResolver) Resolve(channelID string) (Target, error) {
	u, err := url.Parse(channelID)
	if err != nil || !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
		return nil, fmt.Errorf("channel %q is not a webhook url", channelID)
	}
	return &webhookTarget{url: channelID, cfg: r.cfg}, nil
}

type webhookTarget struct {
	url string
	cfg config.DeliveryConfig
}

func (t *webhookTarget) Send(ctx context.Context, msg Message) error {
	body := map[string]any{"content": msg.Text}
	if msg.Payload != nil {
		body["payload"] = msg.Payload
	}
	resp, err := resty.New().
		SetTimeout(t.cfg.Timeout()).
		R().
		SetContext(ctx).
		SetBody(body).
		Post(t.url)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return errors.New("webhook answered " + resp.Status())
	}
	return nil
}
