package webhookpubsub

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Webhook is an operator-registered endpoint notified whenever one of its
// topics fires. An empty topic list subscribes the endpoint to everything.
type Webhook struct {
	ID       string   `json:"id"`
	Endpoint string   `json:"endpoint"`
	Secret   string   `json:"secret"`
	Topics   []string `json:"topics"`
}

func NewWebhook(endpoint, secret string, topics []string) (*Webhook, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("webhook endpoint must be a valid URI")
	}
	id := uuid.New().String()
	return &Webhook{id, endpoint, secret, topics}, nil
}

func (h *Webhook) IsSecured() bool {
	return len(h.Secret) > 0
}

func (h *Webhook) SubscribedTo(topic string) bool {
	if len(h.Topics) <= 0 {
		return true
	}
	for _, t := range h.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
