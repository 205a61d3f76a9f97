package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stockmon/internal/config"
	"stockmon/internal/detect"
	"stockmon/internal/notify"
	"stockmon/internal/stockapi"
	"stockmon/internal/storage"
	logx "stockmon/pkg/logx"
)

// scriptedFetcher serves canned readings, one map lookup per product.
type scriptedFetcher struct {
	mu       sync.Mutex
	readings map[string]*stockapi.Reading
	errs     map[string]error
}

func (f *scriptedFetcher) set(id string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readings == nil {
		f.readings = map[string]*stockapi.Reading{}
	}
	f.readings[id] = &stockapi.Reading{ProductID: id, TotalStock: stock}
	delete(f.errs, id)
}

func (f *scriptedFetcher) fail(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	f.errs[id] = &stockapi.FetchError{ProductID: id, Cause: "http get", Err: errors.New("timeout")}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, productID string) (*stockapi.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[productID]; ok {
		return nil, err
	}
	if r, ok := f.readings[productID]; ok {
		return r, nil
	}
	return &stockapi.Reading{ProductID: productID}, nil
}

// recordingChannel captures dispatched messages; err makes every send fail.
type recordingChannel struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (c *recordingChannel) Name() string { return "recording" }
func (c *recordingChannel) Send(ctx context.Context, title, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, notify.Message{Title: title, Body: body})
	return nil
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newTestMonitor(t *testing.T, ch notify.Channel, products ...detect.ProductSpec) (*Monitor, *scriptedFetcher, storage.Store) {
	t.Helper()
	store, err := storage.Open(storage.Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	f := &scriptedFetcher{}
	settings := Settings{
		Products:          products,
		Mode:              config.ModeSingleShot,
		SuppressionWindow: 6 * time.Hour,
		LinkTemplate:      "https://shop.example.com/{id}",
	}
	var d *notify.Dispatcher
	if ch != nil {
		d = notify.NewDispatcher(logx.Nop(), ch)
	}
	return New(settings, f, store, d, logx.Nop()), f, store
}

func TestCycleSequence(t *testing.T) {
	ch := &recordingChannel{}
	m, f, store := newTestMonitor(t, ch, detect.ProductSpec{ID: "p1", Name: "Phone"})
	ctx := context.Background()

	// Cycle 1: out of stock on first observation. Quiet.
	f.set("p1", 0)
	r, err := m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if r.Transitions != 0 || r.Notified || ch.count() != 0 {
		t.Fatalf("first out-of-stock cycle must be quiet: %+v", r)
	}

	// Cycle 2: stock appears. One notification, suppression recorded.
	f.set("p1", 5)
	r, err = m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if r.Transitions != 1 || !r.Notified || ch.count() != 1 {
		t.Fatalf("in-stock cycle must notify once: %+v", r)
	}
	if _, ok := store.GetSuppressed("p1"); !ok {
		t.Fatalf("delivered notification must record the cooldown")
	}
	if !strings.Contains(ch.sent[0].Body, "Phone") {
		t.Fatalf("notification must name the product:\n%s", ch.sent[0].Body)
	}

	// Cycle 3: stock drops but stays nonzero. Quiet.
	f.set("p1", 3)
	r, _ = m.RunCycle(ctx)
	if r.Transitions != 0 || ch.count() != 1 {
		t.Fatalf("same-side change must be quiet: %+v", r)
	}

	// Three cycles, three history entries.
	if got := len(store.History()); got != 3 {
		t.Fatalf("expected 3 history entries, got %d", got)
	}
}

func TestCycleFetchErrorPreservesState(t *testing.T) {
	ch := &recordingChannel{}
	m, f, store := newTestMonitor(t, ch, detect.ProductSpec{ID: "p1"})
	ctx := context.Background()

	f.set("p1", 5)
	if _, err := m.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	before, _ := store.GetState("p1")

	f.fail("p1")
	r, err := m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("fetch errors must not fail the cycle: %v", err)
	}
	if r.FetchErrors != 1 {
		t.Fatalf("expected 1 fetch error, got %d", r.FetchErrors)
	}
	after, ok := store.GetState("p1")
	if !ok || after != before {
		t.Fatalf("fetch error must leave state untouched: %d -> %d", before, after)
	}
	// And the failure is in the audit record.
	h := store.History()
	last := h[len(h)-1]
	if last.Results[0].Error == "" {
		t.Fatalf("history must record the fetch failure")
	}

	// Recovery: the next good reading classifies against the old state.
	f.set("p1", 5)
	r, _ = m.RunCycle(ctx)
	if r.Transitions != 0 {
		t.Fatalf("recovered identical reading must be quiet: %+v", r)
	}
}

func TestCycleFailedDeliverySkipsCooldown(t *testing.T) {
	ch := &recordingChannel{err: errors.New("backend down")}
	m, f, store := newTestMonitor(t, ch, detect.ProductSpec{ID: "p1"})
	ctx := context.Background()

	f.set("p1", 5)
	r, err := m.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if r.Notified {
		t.Fatalf("all-failed dispatch must not count as notified")
	}
	if _, ok := store.GetSuppressed("p1"); ok {
		t.Fatalf("failed delivery must not start the cooldown")
	}
}

func TestCycleSuppressionWindow(t *testing.T) {
	ch := &recordingChannel{}
	m, f, store := newTestMonitor(t, ch, detect.ProductSpec{ID: "p1"})
	ctx := context.Background()

	f.set("p1", 5)
	m.RunCycle(ctx)
	f.set("p1", 0)
	m.RunCycle(ctx) // out-of-stock alert, never suppressed
	f.set("p1", 5)
	m.RunCycle(ctx) // back in stock, but within the window

	if got := ch.count(); got != 2 {
		t.Fatalf("expected in-stock alert suppressed within window, got %d sends", got)
	}

	// Age the cooldown past the window and flap again.
	if err := store.MarkNotified("p1", time.Now().Add(-7*time.Hour)); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	f.set("p1", 0)
	m.RunCycle(ctx)
	f.set("p1", 5)
	m.RunCycle(ctx)
	if got := ch.count(); got != 4 {
		t.Fatalf("expected alert after window elapsed, got %d sends", got)
	}
}

func TestCycleWithoutChannels(t *testing.T) {
	m, f, store := newTestMonitor(t, nil, detect.ProductSpec{ID: "p1"})
	f.set("p1", 5)
	r, err := m.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if r.Transitions != 1 || r.Notified {
		t.Fatalf("no channels means no delivery: %+v", r)
	}
	// Without a confirmed delivery there is no cooldown either.
	if _, ok := store.GetSuppressed("p1"); ok {
		t.Fatalf("no delivery must not record a cooldown")
	}
}

func TestRunUnknownMode(t *testing.T) {
	m, _, _ := newTestMonitor(t, nil, detect.ProductSpec{ID: "p1"})
	m.settings.Mode = "forever"
	if err := m.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Products: []config.ProductConfig{{ID: "p1", Name: "P", MinStock: 10}},
		Monitor: config.MonitorConfig{
			Mode:     config.ModeBounded,
			Interval: "30s",
			Duration: "5m",
		},
	}
	s, err := SettingsFromConfig(cfg)
	if err != nil {
		t.Fatalf("SettingsFromConfig: %v", err)
	}
	if s.Interval != 30*time.Second || s.Duration != 5*time.Minute {
		t.Fatalf("unexpected durations: %+v", s)
	}
	if s.SuppressionWindow != 5*time.Minute {
		t.Fatalf("bounded default window must be 5m, got %s", s.SuppressionWindow)
	}

	cfg.Monitor.Mode = config.ModeUnbounded
	s, _ = SettingsFromConfig(cfg)
	if s.SuppressionWindow != 6*time.Hour {
		t.Fatalf("loop default window must be 6h, got %s", s.SuppressionWindow)
	}

	cfg.Monitor.SuppressionWindow = "90m"
	s, _ = SettingsFromConfig(cfg)
	if s.SuppressionWindow != 90*time.Minute {
		t.Fatalf("explicit window must win, got %s", s.SuppressionWindow)
	}
}
