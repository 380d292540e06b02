// Package dashboard composes a selection store with the remote gateway the
// way a comparison page uses them: the selection drives a derived comparison
// and savings figure, and gateway failures surface as notifications.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/compare"
	"github.com/stackprice/stackprice/pkg/gateway"
	"github.com/stackprice/stackprice/pkg/selection"
)

// API is the part of the gateway a session needs. *gateway.Client
// satisfies it.
type API interface {
	GetTool(ctx context.Context, id string) gateway.Result[catalog.Tool]
	Compare(ctx context.Context, toolIDs []string) gateway.Result[compare.Result]
	SaveComparison(ctx context.Context, name string, toolIDs []string, userID string) gateway.Result[catalog.Comparison]
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is the last user-facing message produced by a session.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// View is everything a page needs to render the current state.
type View struct {
	Tools      []catalog.Tool
	Providers  []catalog.CloudProvider
	Result     compare.Result
	Savings    decimal.Decimal
	CanCompare bool
	Last       *Notification
}

type Session struct {
	store  *selection.Store
	api    API
	userID string
	log    logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	result  compare.Result
	savings decimal.Decimal
	last    *Notification

	unsubscribe func()
}

// New starts an empty session for userID.
func New(api API, userID string) *Session {
	s := &Session{
		store:   selection.New(),
		api:     api,
		userID:  userID,
		log:     utils.Log,
		now:     time.Now,
		result:  compare.Assemble(nil),
		savings: decimal.Zero,
	}
	s.unsubscribe = s.store.Subscribe(s.recompute)
	return s
}

// Close detaches the session from its store.
func (s *Session) Close() {
	s.unsubscribe()
}

// Store exposes the underlying selection.
func (s *Session) Store() *selection.Store {
	return s.store
}

func (s *Session) recompute(snap selection.Snapshot) {
	res := compare.Assemble(snap.Tools)
	savings := compare.EstimateSavings(snap.Tools)

	s.mu.Lock()
	s.result = res
	s.savings = savings
	s.mu.Unlock()
}

func (s *Session) AddTool(t catalog.Tool) {
	s.store.AddTool(t)
}

func (s *Session) RemoveTool(id string) {
	s.store.RemoveTool(id)
}

func (s *Session) AddProvider(p catalog.CloudProvider) {
	s.store.AddProvider(p)
}

func (s *Session) RemoveProvider(id string) {
	s.store.RemoveProvider(id)
}

// AddToolByID fetches a tool through the gateway and selects it. The
// selection is untouched when the fetch fails.
func (s *Session) AddToolByID(ctx context.Context, id string) error {
	if s.store.HasTool(id) {
		return nil
	}
	tool, err := s.api.GetTool(ctx, id).Unwrap()
	if err != nil {
		s.notify(LevelError, fmt.Sprintf("Could not load tool %s: %v", id, err))
		return err
	}
	s.store.AddTool(tool)
	return nil
}

// CanCompare reports whether enough tools are selected for a comparison.
func (s *Session) CanCompare() bool {
	return len(s.store.Tools()) >= 2
}

// Compare asks the server for the comparison of the current selection and
// makes it the session's result.
func (s *Session) Compare(ctx context.Context) (compare.Result, error) {
	tools := s.store.Tools()
	if len(tools) < 2 {
		err := &gateway.ValidationError{Fields: []gateway.FieldError{{Field: "toolIds", Message: "select at least 2 tools to compare"}}}
		s.notify(LevelError, err.Error())
		return compare.Result{}, err
	}

	res, err := s.api.Compare(ctx, toolIDs(tools)).Unwrap()
	if err != nil {
		s.notify(LevelError, "Comparison failed: "+err.Error())
		return compare.Result{}, err
	}

	s.mu.Lock()
	s.result = res
	s.savings = compare.EstimateSavings(res.Tools)
	s.mu.Unlock()
	return res, nil
}

// Save stores the current selection under name.
func (s *Session) Save(ctx context.Context, name string) (catalog.Comparison, error) {
	cmp, err := s.api.SaveComparison(ctx, name, toolIDs(s.store.Tools()), s.userID).Unwrap()
	if err != nil {
		s.notify(LevelError, "Could not save comparison: "+err.Error())
		return catalog.Comparison{}, err
	}
	s.notify(LevelInfo, fmt.Sprintf("Saved comparison %q", cmp.Name))
	return cmp, nil
}

func (s *Session) Savings() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savings
}

func (s *Session) View() View {
	snap := s.store.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Tools:      snap.Tools,
		Providers:  snap.Providers,
		Result:     s.result,
		Savings:    s.savings,
		CanCompare: len(snap.Tools) >= 2,
	}
	if s.last != nil {
		n := *s.last
		v.Last = &n
	}
	return v
}

// Clear empties the selection and forgets the last notification.
func (s *Session) Clear() {
	s.store.Clear()

	s.mu.Lock()
	s.last = nil
	s.result = compare.Assemble(nil)
	s.savings = decimal.Zero
	s.mu.Unlock()
}

func (s *Session) notify(level Level, msg string) {
	if level == LevelError {
		s.log.Warn(msg)
	} else {
		s.log.Info(msg)
	}
	s.mu.Lock()
	s.last = &Notification{Level: level, Message: msg, At: s.now()}
	s.mu.Unlock()
}

func toolIDs(tools []catalog.Tool) []string {
	ids := make([]string, 0, len(tools))
	for _, t := range tools {
		ids = append(ids, t.ID)
	}
	return ids
}
