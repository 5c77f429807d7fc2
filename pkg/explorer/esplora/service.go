package esplora

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

type esplora struct {
	apiURL string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewService returns an esplora-backed explorer.Service. The constructor
// performs a health check against the given endpoint and fails if the
// explorer is not reachable.
func NewService(apiURL string, requestTimeout time.Duration) (explorer.Service, error) {
	service := &esplora{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		client: &http.Client{Timeout: requestTimeout},
		cb:     newCircuitBreaker(),
	}

	if err := service.healthCheck(); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	return service, nil
}

func newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "esplora",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 10 && ratio >= 0.6
		},
	})
}

func (e *esplora) healthCheck() error {
	_, err := e.GetBlockHeight()
	return err
}

func (e *esplora) get(path string) ([]byte, error) {
	resp, err := e.cb.Execute(func() (interface{}, error) {
		res, err := e.client.Get(e.apiURL + path)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: %s", res.Status, string(body))
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.([]byte), nil
}

func (e *esplora) post(path, body string) ([]byte, error) {
	resp, err := e.cb.Execute(func() (interface{}, error) {
		res, err := e.client.Post(
			e.apiURL+path, "text/plain", strings.NewReader(body),
		)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		buf, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: %s", res.Status, string(buf))
		}
		return buf, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.([]byte), nil
}
