package polling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stackprice/stackprice/pkg/catalog"
)

// Source yields a full catalog snapshot.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*catalog.Seed, error)
}

// FileSource reads a YAML catalog from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Fetch(ctx context.Context) (*catalog.Seed, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seed, err := catalog.LoadSeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return seed, nil
}

// HTTPSource downloads a YAML catalog. Transient failures are retried.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Name() string { return s.URL }

func (s HTTPSource) Fetch(ctx context.Context) (*catalog.Seed, error) {
	client := s.Client
	if client == nil {
		client = newRetryClient()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog %s: HTTP %d", s.URL, resp.StatusCode)
	}

	seed, err := catalog.LoadSeed(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.URL, err)
	}
	return seed, nil
}

// Notifier delivers a matched price alert.
type Notifier interface {
	Notify(ctx context.Context, alert catalog.PriceAlert, point catalog.PricePoint) error
}

// WebhookNotifier POSTs the alert and the price change that triggered it to
// the alert's callback URL.
type WebhookNotifier struct {
	Client *http.Client
}

type webhookPayload struct {
	Alert catalog.PriceAlert `json:"alert"`
	Price catalog.PricePoint `json:"price"`
}

func (n WebhookNotifier) Notify(ctx context.Context, alert catalog.PriceAlert, point catalog.PricePoint) error {
	client := n.Client
	if client == nil {
		client = newRetryClient()
	}

	body, err := json.Marshal(webhookPayload{Alert: alert, Price: point})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, alert.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert %s: callback answered HTTP %d", alert.ID, resp.StatusCode)
	}
	return nil
}

func newRetryClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	return rc.StandardClient()
}
