package webhookpubsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const signatureHeader = "X-Crosswap-Signature"

type webhookService struct {
	lock       *sync.RWMutex
	hooks      map[string]*Webhook
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewWebhookPubSubService returns a PubSubService delivering notifications
// as signed POST requests to the registered endpoints.
func NewWebhookPubSubService(
	hooks []*Webhook, requestTimeout time.Duration,
) (ports.PubSubService, error) {
	hooksById := make(map[string]*Webhook, len(hooks))
	for _, hook := range hooks {
		hooksById[hook.ID] = hook
	}

	return &webhookService{
		lock:       &sync.RWMutex{},
		hooks:      hooksById,
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         newCircuitBreaker(),
	}, nil
}

// Publish makes a POST request to every webhook endpoint subscribed to the
// given topic. This method adopts a circuit breaker approach in order to
// maximize the chances that every webhook gets invoked without errors.
func (ws *webhookService) Publish(topic string, message string) error {
	hooks := ws.hooksForTopic(topic)
	if len(hooks) <= 0 {
		return nil
	}

	eg := &errgroup.Group{}
	for i := range hooks {
		hook := hooks[i]
		eg.Go(func() error { return ws.doRequest(hook, message) })
	}
	if err := eg.Wait(); err != nil {
		// Delivery is best-effort, failures are only logged.
		log.WithError(err).WithField("topic", topic).
			Warn("failed to deliver notification to one or more webhooks")
	}
	return nil
}

// AddWebhook registers the hook. Re-adding an existing id is a no-op.
func (ws *webhookService) AddWebhook(hook *Webhook) string {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	if _, ok := ws.hooks[hook.ID]; ok {
		return hook.ID
	}
	ws.hooks[hook.ID] = hook
	return hook.ID
}

// RemoveWebhook drops the hook with the given id, if it exists.
func (ws *webhookService) RemoveWebhook(hookID string) {
	ws.lock.Lock()
	defer ws.lock.Unlock()

	delete(ws.hooks, hookID)
}

func (ws *webhookService) hooksForTopic(topic string) []*Webhook {
	ws.lock.RLock()
	defer ws.lock.RUnlock()

	hooks := make([]*Webhook, 0, len(ws.hooks))
	for _, hook := range ws.hooks {
		if hook.SubscribedTo(topic) {
			hooks = append(hooks, hook)
		}
	}
	return hooks
}

func (ws *webhookService) doRequest(hook *Webhook, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequest(
			http.MethodPost, hook.Endpoint, strings.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if hook.IsSecured() {
			req.Header.Set(signatureHeader, signPayload(hook.Secret, payload))
		}

		resp, err := ws.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("%s", string(body))
		}
		return nil, nil
	})

	return err
}

// signPayload computes the hex-encoded HMAC-SHA256 of the payload, letting
// the receiver authenticate the notification with the shared secret.
func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "webhook",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.7
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("webhook endpoints seem down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				log.Info("checking webhook endpoints status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Info("webhook endpoints seem ok, restart allowing requests")
			}
		},
	})
}
