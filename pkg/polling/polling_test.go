package polling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/storage"
)

func catalogYAML(trelloPro string) string {
	return fmt.Sprintf(`
tools:
  - id: trello
    name: Trello
    category: PM
    website: https://trello.com
    pricing:
      free: {price: 0, features: [Boards]}
      pro: {price: %s, features: [Automation]}
providers:
  - id: aws
    name: AWS
    services:
      - id: ec2
        name: EC2
        pricing:
          basic: {price: 10}
`, trelloPro)
}

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPollCatalogDeliversAlerts(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	dir := t.TempDir()

	var mu sync.Mutex
	var received []webhookPayload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer hook.Close()

	cfg := Config{
		Source:   FileSource{Path: writeCatalog(t, dir, catalogYAML("49"))},
		DB:       db,
		Notifier: WebhookNotifier{Client: hook.Client()},
	}

	res, err := PollCatalog(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tools)
	assert.Equal(t, 1, res.Providers)
	assert.Len(t, res.Changes, 2)
	assert.Empty(t, res.Alerts)

	_, err = db.CreateAlert(ctx, catalog.PriceAlert{UserID: "u1", ToolID: "trello", Tier: "pro", Threshold: "40", CallbackURL: hook.URL})
	require.NoError(t, err)
	_, err = db.CreateAlert(ctx, catalog.PriceAlert{UserID: "u2", ToolID: "trello", Tier: "pro", Threshold: "20", CallbackURL: hook.URL})
	require.NoError(t, err)

	writeCatalog(t, dir, catalogYAML("39"))
	res, err = PollCatalog(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "updated", res.Changes[0].ChangeType)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "u1", res.Alerts[0].UserID)
	assert.Equal(t, 1, res.Delivered)
	assert.Empty(t, res.Errors)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "u1", received[0].Alert.UserID)
	assert.Equal(t, "39", received[0].Price.Price.String())
}

func TestPollCatalogDeliveryErrors(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	dir := t.TempDir()

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer hook.Close()

	cfg := Config{
		Source:   FileSource{Path: writeCatalog(t, dir, catalogYAML("49"))},
		DB:       db,
		Notifier: WebhookNotifier{Client: hook.Client()},
	}
	_, err := PollCatalog(ctx, cfg)
	require.NoError(t, err)

	_, err = db.CreateAlert(ctx, catalog.PriceAlert{UserID: "u1", ToolID: "trello", Tier: "pro", Threshold: "45", CallbackURL: hook.URL})
	require.NoError(t, err)
	_, err = db.CreateAlert(ctx, catalog.PriceAlert{UserID: "u2", ToolID: "trello", Tier: "pro", Threshold: "45"})
	require.NoError(t, err)

	writeCatalog(t, dir, catalogYAML("30"))
	res, err := PollCatalog(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Alerts, 2)
	assert.Equal(t, 0, res.Delivered)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "410")
}

func TestPollCatalogRefusesEmptySource(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	var tools []catalog.Tool
	for i := 0; i < 11; i++ {
		tools = append(tools, catalog.Tool{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Tool %d", i), Category: "X"})
	}
	_, err := db.UpsertTools(ctx, tools)
	require.NoError(t, err)

	res, err := PollCatalog(ctx, Config{Source: FileSource{Path: writeCatalog(t, t.TempDir(), "tools: []\n")}, DB: db})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)

	stored, err := db.ListTools(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, stored, 11)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog.yaml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(catalogYAML("12.5")))
	}))
	defer srv.Close()

	seed, err := HTTPSource{URL: srv.URL + "/catalog.yaml", Client: srv.Client()}.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, seed.Tools, 1)
	assert.Equal(t, "Trello", seed.Tools[0].Name)

	_, err = HTTPSource{URL: srv.URL + "/missing.yaml", Client: srv.Client()}.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestPollCatalogRequiresSource(t *testing.T) {
	_, err := PollCatalog(context.Background(), Config{})
	assert.Error(t, err)
}

type recordingLock struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (l *recordingLock) Lock(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "lock")
	return l.err
}

func (l *recordingLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, "unlock")
	return nil
}

func TestPollCatalogHoldsLock(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	path := writeCatalog(t, t.TempDir(), catalogYAML("49"))

	lock := &recordingLock{}
	res, err := PollCatalog(ctx, Config{Source: FileSource{Path: path}, DB: db, Lock: lock})
	require.NoError(t, err)
	assert.Len(t, res.Changes, 2)
	assert.Equal(t, []string{"lock", "unlock"}, lock.events)

	busy := &recordingLock{err: context.DeadlineExceeded}
	_, err = PollCatalog(ctx, Config{Source: FileSource{Path: path}, DB: db, Lock: busy})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"lock"}, busy.events)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	src := FileSource{Path: writeCatalog(t, t.TempDir(), catalogYAML("49"))}

	tests := []struct {
		name     string
		cfg      Config
		interval time.Duration
	}{
		{"zero interval", Config{Source: src}, 0},
		{"negative interval", Config{Source: src}, -time.Second},
		{"missing source", Config{}, time.Minute},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Error(t, Run(context.Background(), tc.cfg, tc.interval))
			})
		})
	}
}

func TestRunStopsWithContext(t *testing.T) {
	db := openDB(t)
	cfg := Config{Source: FileSource{Path: writeCatalog(t, t.TempDir(), catalogYAML("49"))}, DB: db}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, time.Hour) }()

	require.Eventually(t, func() bool {
		tools, err := db.ListTools(context.Background(), storage.ListOptions{})
		return err == nil && len(tools) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
