package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Locker guards catalog writes against other writers on the same database.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Config holds everything PollCatalog needs for one catalog source.
type Config struct {
	Source      Source
	DB          *storage.DB
	Lock        Locker   // optional; held from the emptiness check until PollCatalog returns
	Notifier    Notifier // optional; nil = matched alerts are only reported
	Concurrency int      // alert deliveries in flight, defaults to 5 if <= 0
	Log         Logger   // optional; nil = no logging
}

// Result holds the outcome of one poll.
type Result struct {
	Tools     int
	Providers int
	Changes   []catalog.PricePoint
	Alerts    []catalog.PriceAlert // alerts whose threshold was met
	Delivered int
	Errors    []error // non-fatal delivery errors
}

// PollCatalog fetches the source, upserts tools and providers, records price
// changes and delivers matching price alerts. DB is required.
func PollCatalog(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	if cfg.Source == nil || cfg.DB == nil {
		return nil, errors.New("polling: source and database are required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	db := cfg.DB

	seed, err := cfg.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{Tools: len(seed.Tools), Providers: len(seed.Providers)}

	if cfg.Lock != nil {
		if err := cfg.Lock.Lock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := cfg.Lock.Unlock(); err != nil {
				log.Warnf("Could not release catalog lock: %v", err)
			}
		}()
	}

	// Safety check: an empty catalog against a populated database is far more
	// likely a broken source than a real wipe.
	existing, err := db.ListTools(ctx, storage.ListOptions{})
	if err != nil {
		log.Warnf("Could not count stored tools: %v", err)
	}
	if len(seed.Tools) == 0 && len(existing) > 10 {
		log.Errorf("Source %s returned 0 tools, but database has %d. Skipping this poll to prevent data loss.", cfg.Source.Name(), len(existing))
		return result, nil
	}

	changes, err := db.UpsertTools(ctx, seed.Tools)
	if err != nil {
		return nil, err
	}
	if err := db.UpsertProviders(ctx, seed.Providers); err != nil {
		return nil, err
	}
	result.Changes = changes
	log.Infof("Polled %s: %d tools, %d providers, %d price changes", cfg.Source.Name(), len(seed.Tools), len(seed.Providers), len(changes))

	alerts, err := db.MatchAlerts(ctx, changes)
	if err != nil {
		return nil, err
	}
	result.Alerts = alerts

	if cfg.Notifier != nil && len(alerts) > 0 {
		result.Delivered, result.Errors = deliverConcurrently(ctx, cfg.Notifier, alerts, changes, concurrency, log)
	}
	return result, nil
}

// Run polls once immediately and then every interval until ctx is done.
// Poll failures are logged and do not stop the loop. Only an invalid
// interval or a missing source is returned as an error.
func Run(ctx context.Context, cfg Config, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("polling: interval must be positive, got %s", interval)
	}
	if cfg.Source == nil {
		return errors.New("polling: source is required")
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := PollCatalog(ctx, cfg); err != nil && ctx.Err() == nil {
			log.Errorf("Polling %s failed: %v", cfg.Source.Name(), err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// deliverConcurrently sends matched alerts using a worker pool.
func deliverConcurrently(
	ctx context.Context,
	n Notifier,
	alerts []catalog.PriceAlert,
	changes []catalog.PricePoint,
	concurrency int,
	log Logger,
) (int, []error) {
	points := make(map[string]catalog.PricePoint, len(changes))
	for _, c := range changes {
		points[c.ToolID+"\x00"+string(c.Tier)] = c
	}

	alertChan := make(chan catalog.PriceAlert, len(alerts))

	var mu sync.Mutex
	delivered := 0
	var allErrors []error

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range alertChan {
				if a.CallbackURL == "" {
					log.Debugf("Alert %s has no callback URL, skipping delivery", a.ID)
					continue
				}
				point := points[a.ToolID+"\x00"+string(a.Tier)]
				if err := n.Notify(ctx, a, point); err != nil {
					log.Warnf("Could not deliver alert %s: %v", a.ID, err)
					mu.Lock()
					allErrors = append(allErrors, err)
					mu.Unlock()
					continue
				}
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}

	for _, a := range alerts {
		alertChan <- a
	}
	close(alertChan)
	wg.Wait()

	return delivered, allErrors
}
