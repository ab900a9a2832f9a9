package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dwetherby/audioctl/internal/audio"
	"github.com/dwetherby/audioctl/internal/bluetooth"
	"github.com/dwetherby/audioctl/internal/device"
	"github.com/dwetherby/audioctl/internal/history"
)

// fakeAudio is a minimal audio backend for core tests.
type fakeAudio struct {
	sinks []audio.Sink
}

func (f *fakeAudio) ListSinks(context.Context) ([]audio.Sink, error) { return f.sinks, nil }
func (f *fakeAudio) SetVolume(context.Context, string, int) error    { return nil }
func (f *fakeAudio) SetDefault(context.Context, string) error        { return nil }

// fakeBT is a scriptable bluetooth backend for core tests.
type fakeBT struct {
	mu        sync.Mutex
	discovery chan bluetooth.Found
	pairFn    func(ctx context.Context, mac string) error
	connectFn func(ctx context.Context, mac string) error
	cancelled []string
}

func (f *fakeBT) Discover(context.Context, time.Duration) (<-chan bluetooth.Found, error) {
	if f.discovery != nil {
		return f.discovery, nil
	}
	ch := make(chan bluetooth.Found)
	close(ch)
	return ch, nil
}

func (f *fakeBT) PairedDevices(context.Context) ([]bluetooth.PairedDevice, error) {
	return nil, nil
}

func (f *fakeBT) Pair(ctx context.Context, mac string) error {
	f.mu.Lock()
	fn := f.pairFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, mac)
	}
	return nil
}

func (f *fakeBT) Connect(ctx context.Context, mac string) error {
	f.mu.Lock()
	fn := f.connectFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, mac)
	}
	return nil
}

func (f *fakeBT) setPairFn(fn func(ctx context.Context, mac string) error) {
	f.mu.Lock()
	f.pairFn = fn
	f.mu.Unlock()
}

func (f *fakeBT) Cancel(_ context.Context, mac string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, mac)
	return nil
}

func (f *fakeBT) cancelledMACs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// captureEvents records published events.
type captureEvents struct {
	mu     sync.Mutex
	events []string
}

func (c *captureEvents) Publish(event string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEvents) has(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == event {
			return true
		}
	}
	return false
}

// captureHistory records history entries.
type captureHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (c *captureHistory) Record(_ context.Context, e history.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureHistory) last() (history.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return history.Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

type testHarness struct {
	core    *Core
	bt      *fakeBT
	events  *captureEvents
	history *captureHistory
}

func newHarness(cfg Config, bt *fakeBT) *testHarness {
	reg := device.NewRegistry(&fakeAudio{}, bt)
	events := &captureEvents{}
	hist := &captureHistory{}
	c := New(cfg, Deps{
		Registry:  reg,
		Bluetooth: bt,
		History:   hist,
		Events:    events,
	})
	return &testHarness{core: c, bt: bt, events: events, history: hist}
}

func fastConfig() Config {
	return Config{
		ScanWindow:     50 * time.Millisecond,
		PairTimeout:    time.Second,
		ConnectTimeout: time.Second,
		SettleDelay:    0,
	}
}

func TestCore_Scan(t *testing.T) {
	bt := &fakeBT{discovery: make(chan bluetooth.Found, 2)}
	bt.discovery <- bluetooth.Found{MAC: "AA:BB:CC:DD:EE:FF", Name: "Headphones"}
	bt.discovery <- bluetooth.Found{MAC: "11:22:33:44:55:66", Name: "Speaker"}
	close(bt.discovery)

	h := newHarness(fastConfig(), bt)

	found, err := h.core.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Scan() found %d devices, want 2", len(found))
	}
	if !h.events.has(EventScanCompleted) || !h.events.has(EventDeviceFound) {
		t.Errorf("missing scan events, got %v", h.events.events)
	}

	entry, ok := h.history.last()
	if !ok || entry.Operation != history.OpScan || entry.Outcome != history.OutcomeSuccess {
		t.Errorf("history entry = %+v", entry)
	}

	// Discovered devices land in the snapshot.
	devices, err := h.core.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("Devices() returned %d devices, want 2 discovered", len(devices))
	}
}

func TestCore_Scan_SingleFlight(t *testing.T) {
	bt := &fakeBT{discovery: make(chan bluetooth.Found)}
	h := newHarness(fastConfig(), bt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.core.Scan(context.Background()) //nolint:errcheck
	}()

	// Wait for the first scan to claim the slot.
	deadline := time.After(time.Second)
	for !h.core.Scanning() {
		select {
		case <-deadline:
			t.Fatal("first scan never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := h.core.Scan(context.Background()); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("concurrent Scan() error = %v, want ErrScanInProgress", err)
	}

	close(bt.discovery)
	<-done

	if h.core.Scanning() {
		t.Error("scanning flag still set after scan finished")
	}

	// The slot is free again.
	bt.discovery = nil
	if _, err := h.core.Scan(context.Background()); err != nil {
		t.Errorf("follow-up Scan() error = %v", err)
	}
}

func TestCore_Pair_Success(t *testing.T) {
	bt := &fakeBT{}
	h := newHarness(fastConfig(), bt)

	res, err := h.core.Pair(context.Background(), "aa:bb:cc:dd:ee:ff", "")
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if res.State != StatePaired {
		t.Errorf("Pair() state = %q, want %q", res.State, StatePaired)
	}
	if res.MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Pair() MAC = %q, want normalised uppercase", res.MAC)
	}
	if !h.events.has(EventPaired) {
		t.Error("paired event not published")
	}
	entry, _ := h.history.last()
	if entry.Operation != history.OpPair || entry.Outcome != history.OutcomeSuccess {
		t.Errorf("history entry = %+v", entry)
	}
}

func TestCore_Pair_ClientSuppliedName(t *testing.T) {
	h := newHarness(fastConfig(), &fakeBT{})

	// The device was never scanned by this process; the caller's name is
	// the only label available and must survive into the result and the
	// operations log.
	res, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "Kitchen Speaker")
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if res.Name != "Kitchen Speaker" {
		t.Errorf("Pair() name = %q, want the client-supplied name", res.Name)
	}
	entry, _ := h.history.last()
	if entry.Name != "Kitchen Speaker" {
		t.Errorf("history entry name = %q, want the client-supplied name", entry.Name)
	}
}

func TestCore_Pair_NameFallsBackToScan(t *testing.T) {
	bt := &fakeBT{discovery: make(chan bluetooth.Found, 1)}
	bt.discovery <- bluetooth.Found{MAC: "AA:BB:CC:DD:EE:FF", Name: "Headphones"}
	close(bt.discovery)
	h := newHarness(fastConfig(), bt)

	if _, err := h.core.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	res, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if res.Name != "Headphones" {
		t.Errorf("Pair() name = %q, want the name recorded during the scan", res.Name)
	}
}

func TestCore_Pair_InvalidMAC(t *testing.T) {
	h := newHarness(fastConfig(), &fakeBT{})

	if _, err := h.core.Pair(context.Background(), "not-a-mac", ""); !errors.Is(err, bluetooth.ErrInvalidAddress) {
		t.Errorf("Pair() error = %v, want ErrInvalidAddress", err)
	}
}

func TestCore_Pair_BackendFailure(t *testing.T) {
	bt := &fakeBT{pairFn: func(context.Context, string) error {
		return errors.New("AuthenticationFailed")
	}}
	h := newHarness(fastConfig(), bt)

	res, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("Pair() error = %v, failures should come back in the result", err)
	}
	if res.State != StateFailed {
		t.Errorf("Pair() state = %q, want %q", res.State, StateFailed)
	}
	if res.Reason != "AuthenticationFailed" {
		t.Errorf("Pair() reason = %q", res.Reason)
	}
	if !h.events.has(EventSessionFailed) {
		t.Error("failure event not published")
	}
}

func TestCore_Pair_Timeout(t *testing.T) {
	bt := &fakeBT{pairFn: func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	cfg := fastConfig()
	cfg.PairTimeout = 30 * time.Millisecond
	h := newHarness(cfg, bt)

	res, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if res.State != StateFailed || res.Reason != ReasonTimeout {
		t.Errorf("Pair() = %+v, want failed/timeout", res)
	}

	macs := bt.cancelledMACs()
	if len(macs) != 1 || macs[0] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("cancel-pairing calls = %v, want one for the timed-out device", macs)
	}
}

func TestCore_Pair_Superseded(t *testing.T) {
	started := make(chan struct{})
	bt := &fakeBT{pairFn: func(ctx context.Context, mac string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}}
	h := newHarness(fastConfig(), bt)

	type pairResult struct {
		res Result
		err error
	}
	first := make(chan pairResult, 1)
	go func() {
		res, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "")
		first <- pairResult{res, err}
	}()

	<-started

	// Second request for the same device succeeds immediately and must
	// kick the first session out.
	bt.setPairFn(func(context.Context, string) error { return nil })
	res2, err := h.core.Pair(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("second Pair() error = %v", err)
	}
	if res2.State != StatePaired {
		t.Errorf("second Pair() state = %q, want %q", res2.State, StatePaired)
	}

	got := <-first
	if got.err != nil {
		t.Fatalf("first Pair() error = %v", got.err)
	}
	if got.res.State != StateFailed || got.res.Reason != ReasonSuperseded {
		t.Errorf("first Pair() = %+v, want failed/superseded", got.res)
	}

	// The successor clears the displaced attempt at the stack.
	if macs := bt.cancelledMACs(); len(macs) == 0 {
		t.Error("superseding request did not cancel the displaced pairing")
	}
}

func TestCore_Connect_Success(t *testing.T) {
	h := newHarness(fastConfig(), &fakeBT{})

	res, err := h.core.Connect(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if res.State != StateConnected {
		t.Errorf("Connect() state = %q, want %q", res.State, StateConnected)
	}
	if !h.events.has(EventConnected) {
		t.Error("connected event not published")
	}
}

func TestCore_Connect_Timeout(t *testing.T) {
	bt := &fakeBT{connectFn: func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	cfg := fastConfig()
	cfg.ConnectTimeout = 30 * time.Millisecond
	h := newHarness(cfg, bt)

	res, err := h.core.Connect(context.Background(), "AA:BB:CC:DD:EE:FF", "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if res.State != StateFailed || res.Reason != ReasonTimeout {
		t.Errorf("Connect() = %+v, want failed/timeout", res)
	}
}

func TestCore_SessionsForDistinctDevicesRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	bt := &fakeBT{pairFn: func(ctx context.Context, _ string) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}
	h := newHarness(fastConfig(), bt)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, mac := range []string{"AA:BB:CC:DD:EE:FF", "11:22:33:44:55:66"} {
		i, mac := i, mac
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.core.Pair(context.Background(), mac, "")
			if err != nil {
				t.Errorf("Pair(%s) error = %v", mac, err)
				return
			}
			results[i] = res
		}()
	}

	// Both sessions must be in flight at once; releasing once unblocks
	// both because the channel close reaches every waiter.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, res := range results {
		if res.State != StatePaired {
			t.Errorf("session %d state = %q, want %q", i, res.State, StatePaired)
		}
	}
}

func TestCore_SetVolume_PublishesEvent(t *testing.T) {
	bt := &fakeBT{}
	reg := device.NewRegistry(&fakeAudio{sinks: []audio.Sink{
		{ID: "alsa_output.pci-0000_00_1f.3.analog-stereo", Description: "Built-in Audio", Volume: 50, IsDefault: true},
	}}, bt)
	events := &captureEvents{}
	c := New(fastConfig(), Deps{Registry: reg, Bluetooth: bt, Events: events})

	d, err := c.SetVolume(context.Background(), 75)
	if err != nil {
		t.Fatalf("SetVolume() error = %v", err)
	}
	if d.Volume == nil || *d.Volume != 75 {
		t.Errorf("SetVolume() volume = %v, want 75", d.Volume)
	}
	if !events.has(EventVolumeChanged) {
		t.Error("volume event not published")
	}
}
