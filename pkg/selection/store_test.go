package selection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackprice/stackprice/pkg/catalog"
)

func ids(tools []catalog.Tool) []string {
	out := []string{}
	for _, t := range tools {
		out = append(out, t.ID)
	}
	return out
}

func TestAddToolIsIdempotent(t *testing.T) {
	s := New()
	s.AddTool(catalog.Tool{ID: "a", Name: "A"})
	s.AddTool(catalog.Tool{ID: "b", Name: "B"})
	s.AddTool(catalog.Tool{ID: "a", Name: "A again"})

	tools := s.Tools()
	assert.Equal(t, []string{"a", "b"}, ids(tools))
	assert.Equal(t, "A", tools[0].Name)
}

func TestRemoveAbsentToolIsNoop(t *testing.T) {
	s := New()
	s.AddTool(catalog.Tool{ID: "a"})

	calls := 0
	s.Subscribe(func(Snapshot) { calls++ })

	s.RemoveTool("missing")
	assert.Equal(t, []string{"a"}, ids(s.Tools()))
	assert.Zero(t, calls)

	s.RemoveTool("a")
	assert.Empty(t, s.Tools())
	assert.Equal(t, 1, calls)
}

func TestRemoveKeepsOrder(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.AddTool(catalog.Tool{ID: id})
	}
	before := s.Tools()
	s.RemoveTool("b")
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.Tools()))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(before), "earlier copies are not aliased")
}

func TestSetToolsDeduplicates(t *testing.T) {
	s := New()
	s.AddTool(catalog.Tool{ID: "old"})
	s.SetTools([]catalog.Tool{{ID: "x", Name: "first"}, {ID: "y"}, {ID: "x", Name: "second"}})

	tools := s.Tools()
	assert.Equal(t, []string{"x", "y"}, ids(tools))
	assert.Equal(t, "first", tools[0].Name)
}

func TestProviders(t *testing.T) {
	s := New()
	s.AddProvider(catalog.CloudProvider{ID: "aws"})
	s.AddProvider(catalog.CloudProvider{ID: "gcp"})
	s.AddProvider(catalog.CloudProvider{ID: "aws"})
	require.Len(t, s.Providers(), 2)

	s.RemoveProvider("nope")
	s.RemoveProvider("aws")
	require.Len(t, s.Providers(), 1)
	assert.Equal(t, "gcp", s.Providers()[0].ID)

	s.SetProviders([]catalog.CloudProvider{{ID: "azure"}, {ID: "azure"}})
	assert.Len(t, s.Providers(), 1)
	assert.Len(t, s.Tools(), 0, "provider changes leave tools alone")
}

func TestClear(t *testing.T) {
	s := New()
	s.AddTool(catalog.Tool{ID: "a"})
	s.AddProvider(catalog.CloudProvider{ID: "aws"})

	var last Snapshot
	calls := 0
	s.Subscribe(func(snap Snapshot) {
		calls++
		last = snap
	})

	s.Clear()
	assert.Empty(t, s.Tools())
	assert.Empty(t, s.Providers())
	assert.Equal(t, 1, calls)
	assert.Empty(t, last.Tools)

	s.Clear()
	assert.Equal(t, 1, calls, "clearing an empty store does not notify")
}

func TestSubscribersSeeEachChange(t *testing.T) {
	s := New()
	var seen [][]string
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		seen = append(seen, ids(snap.Tools))
	})

	s.AddTool(catalog.Tool{ID: "a"})
	s.AddTool(catalog.Tool{ID: "a"})
	s.AddTool(catalog.Tool{ID: "b"})
	unsubscribe()
	s.AddTool(catalog.Tool{ID: "c"})

	assert.Equal(t, [][]string{{"a"}, {"a", "b"}}, seen)
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := New()
	var count int
	s.Subscribe(func(Snapshot) { count = len(s.Tools()) })
	s.AddTool(catalog.Tool{ID: "a"})
	assert.Equal(t, 1, count)
	assert.True(t, s.HasTool("a"))
}

func TestConcurrentChangesNotifyInOrder(t *testing.T) {
	s := New()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(Snapshot) {
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	var mu sync.Mutex
	var last []string
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		last = ids(snap.Tools)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.AddTool(catalog.Tool{ID: "a"})
	}()
	<-entered
	go func() {
		defer wg.Done()
		s.AddTool(catalog.Tool{ID: "b"})
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"a", "b"}, ids(s.Tools()))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, last)
}
