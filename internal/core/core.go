package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dwetherby/audioctl/internal/bluetooth"
	"github.com/dwetherby/audioctl/internal/device"
	"github.com/dwetherby/audioctl/internal/history"
)

// Event types published on the event sink.
const (
	EventVolumeChanged  = "audio.volume_changed"
	EventDeviceSelected = "audio.device_selected"
	EventScanStarted    = "bluetooth.scan_started"
	EventDeviceFound    = "bluetooth.device_found"
	EventScanCompleted  = "bluetooth.scan_completed"
	EventPaired         = "bluetooth.paired"
	EventConnected      = "bluetooth.connected"
	EventSessionFailed  = "bluetooth.session_failed"
)

// EventSink receives domain events for fan-out to subscribers.
type EventSink interface {
	Publish(event string, payload any)
}

// noopEvents discards all events.
type noopEvents struct{}

func (noopEvents) Publish(string, any) {}

// Recorder persists Bluetooth operation outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// noopRecorder discards all history entries.
type noopRecorder struct{}

func (noopRecorder) Record(context.Context, history.Entry) error { return nil }

// Logger defines the logging interface used by the core.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds the timing knobs for Bluetooth orchestration.
type Config struct {
	// ScanWindow is how long a discovery scan listens.
	ScanWindow time.Duration

	// PairTimeout bounds one pairing session.
	PairTimeout time.Duration

	// ConnectTimeout bounds one connection session.
	ConnectTimeout time.Duration

	// SettleDelay is the pause after a successful connect, giving the
	// audio server time to register the device's sink.
	SettleDelay time.Duration
}

// Deps contains the dependencies for the orchestration core.
type Deps struct {
	Registry  *device.Registry
	Bluetooth bluetooth.Backend
	History   Recorder
	Events    EventSink
	Logger    Logger
}

// Core orchestrates device queries, audio routing, and Bluetooth
// sessions.
//
// Its mutex guards only the bookkeeping maps and is never held across a
// backend call: a slow pairing attempt must not block a device listing.
// Discovery scans are single-flight across the whole service; pair and
// connect sessions are single-flight per device, with a newer request
// for the same device cancelling the older one.
type Core struct {
	cfg      Config
	registry *device.Registry
	bt       bluetooth.Backend
	history  Recorder
	events   EventSink
	logger   Logger

	mu       sync.Mutex
	scanning bool
	sessions map[string]*session
}

// New creates the orchestration core.
func New(cfg Config, deps Deps) *Core {
	c := &Core{
		cfg:      cfg,
		registry: deps.Registry,
		bt:       deps.Bluetooth,
		history:  deps.History,
		events:   deps.Events,
		logger:   deps.Logger,
		sessions: make(map[string]*session),
	}
	if c.history == nil {
		c.history = noopRecorder{}
	}
	if c.events == nil {
		c.events = noopEvents{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	return c
}

// Devices returns the merged device snapshot, active device first.
func (c *Core) Devices(ctx context.Context) ([]device.Device, error) {
	return c.registry.List(ctx)
}

// Active returns the current default output device.
func (c *Core) Active(ctx context.Context) (device.Device, error) {
	return c.registry.Active(ctx)
}

// SetVolume sets the active device's volume.
func (c *Core) SetVolume(ctx context.Context, percent int) (device.Device, error) {
	d, err := c.registry.SetVolume(ctx, percent)
	if err != nil {
		return device.Device{}, err
	}
	c.logger.Info("volume changed", "device", d.ID, "volume", percent)
	c.events.Publish(EventVolumeChanged, d)
	return d, nil
}

// SelectDevice makes the given device the default output.
func (c *Core) SelectDevice(ctx context.Context, id string) (device.Device, error) {
	d, err := c.registry.Select(ctx, id)
	if err != nil {
		return device.Device{}, err
	}
	c.logger.Info("device selected", "device", d.ID)
	c.events.Publish(EventDeviceSelected, d)
	return d, nil
}

// Scanning reports whether a discovery scan is currently running.
func (c *Core) Scanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanning
}

// Scan runs one discovery scan and returns the devices found. Scans are
// single-flight: a second caller gets ErrScanInProgress instead of
// queueing. The call blocks for the full scan window.
func (c *Core) Scan(ctx context.Context) ([]bluetooth.Found, error) {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return nil, ErrScanInProgress
	}
	c.scanning = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.scanning = false
		c.mu.Unlock()
	}()

	started := time.Now()
	c.logger.Info("bluetooth scan started", "window", c.cfg.ScanWindow)
	c.events.Publish(EventScanStarted, map[string]any{"window_seconds": int(c.cfg.ScanWindow.Seconds())})

	ch, err := c.bt.Discover(ctx, c.cfg.ScanWindow)
	if err != nil {
		c.record(ctx, started, "", "", history.OpScan, history.OutcomeFailed, err.Error())
		return nil, err
	}

	found := make([]bluetooth.Found, 0, 8)
	for f := range ch {
		c.registry.MarkDiscovered(f.MAC, f.Name)
		found = append(found, f)
		c.events.Publish(EventDeviceFound, f)
	}

	c.logger.Info("bluetooth scan completed", "found", len(found), "elapsed", time.Since(started))
	c.events.Publish(EventScanCompleted, map[string]any{"found": len(found)})
	c.record(ctx, started, "", "", history.OpScan, history.OutcomeSuccess, "")
	return found, nil
}

// Pair pairs with the given device. The call blocks until the attempt
// succeeds, fails, times out, or is superseded by a newer request for the
// same device; the terminal outcome comes back in the Result rather than
// the error, which is reserved for requests that never start.
//
// The caller-supplied name labels the device in results and the history
// log; when empty, the name recorded during a scan is used instead.
func (c *Core) Pair(ctx context.Context, mac, name string) (Result, error) {
	if !bluetooth.ValidMAC(mac) {
		return Result{}, fmt.Errorf("%w: %q", bluetooth.ErrInvalidAddress, mac)
	}
	mac = strings.ToUpper(mac)
	name = c.resolveName(mac, name)

	s, hadPrev := c.takeover(ctx, mac, c.cfg.PairTimeout)
	defer c.finish(s)

	// Clear the stack's half-done attempt before starting ours, so the
	// superseded session's pairing can't collide with the new one.
	if hadPrev {
		if cerr := c.bt.Cancel(ctx, mac); cerr != nil {
			c.logger.Warn("cancel-pairing before retry failed", "mac", mac, "error", cerr)
		}
	}

	started := time.Now()
	c.logger.Info("pairing started", "mac", mac)

	if err := c.bt.Pair(s.ctx, mac); err != nil {
		return c.fail(ctx, s, started, name, history.OpPair, err), nil
	}

	c.registry.SetLifecycle(mac, device.StatePaired)
	res := Result{MAC: mac, Name: name, State: StatePaired}
	c.logger.Info("pairing succeeded", "mac", mac, "elapsed", time.Since(started))
	c.events.Publish(EventPaired, res)
	c.record(ctx, started, mac, name, history.OpPair, history.OutcomeSuccess, "")
	return res, nil
}

// Connect connects to the given (already paired) device. On success the
// call waits out the settle delay so the audio server has registered the
// device's sink before the caller queries for it. The name parameter
// follows the same rule as Pair's.
func (c *Core) Connect(ctx context.Context, mac, name string) (Result, error) {
	if !bluetooth.ValidMAC(mac) {
		return Result{}, fmt.Errorf("%w: %q", bluetooth.ErrInvalidAddress, mac)
	}
	mac = strings.ToUpper(mac)
	name = c.resolveName(mac, name)

	s, _ := c.takeover(ctx, mac, c.cfg.ConnectTimeout)
	defer c.finish(s)

	started := time.Now()
	c.logger.Info("connect started", "mac", mac)

	if err := c.bt.Connect(s.ctx, mac); err != nil {
		return c.fail(ctx, s, started, name, history.OpConnect, err), nil
	}

	// The sink appears a moment after the stack reports the connection.
	if c.cfg.SettleDelay > 0 {
		select {
		case <-time.After(c.cfg.SettleDelay):
		case <-ctx.Done():
		}
	}

	c.registry.SetLifecycle(mac, device.StateConnected)
	res := Result{MAC: mac, Name: name, State: StateConnected}
	c.logger.Info("connect succeeded", "mac", mac, "elapsed", time.Since(started))
	c.events.Publish(EventConnected, res)
	c.record(ctx, started, mac, name, history.OpConnect, history.OutcomeSuccess, "")
	return res, nil
}

// resolveName picks the device label for a session: the caller's name
// when given, otherwise whatever a scan recorded for the address.
func (c *Core) resolveName(mac, name string) string {
	if name != "" {
		return name
	}
	return c.registry.DiscoveredName(mac)
}

// takeover registers a new session for mac, cancelling any session the
// same device already has in flight. It reports whether a previous
// session was displaced.
func (c *Core) takeover(ctx context.Context, mac string, timeout time.Duration) (*session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.sessions[mac]
	if prev != nil {
		c.logger.Warn("superseding in-flight session", "mac", mac)
		prev.supersede()
	}
	s := newSession(ctx, mac, timeout)
	c.sessions[mac] = s
	return s, prev != nil
}

// finish removes a completed session, unless a newer one already replaced
// it in the map.
func (c *Core) finish(s *session) {
	c.mu.Lock()
	if c.sessions[s.mac] == s {
		delete(c.sessions, s.mac)
	}
	c.mu.Unlock()
	s.release()
}

// fail builds the failed Result for a session, tells the stack to abandon
// any half-done pairing, and records the outcome.
func (c *Core) fail(ctx context.Context, s *session, started time.Time, name, op string, err error) Result {
	reason := s.outcome(err)
	res := Result{MAC: s.mac, Name: name, State: StateFailed, Reason: reason}

	// A superseded session leaves cleanup to its successor; a timed-out
	// one has no successor, so abandon the attempt here.
	if reason == ReasonTimeout {
		if cerr := c.bt.Cancel(context.Background(), s.mac); cerr != nil {
			c.logger.Warn("cancel-pairing failed", "mac", s.mac, "error", cerr)
		}
	}

	c.logger.Warn("session failed", "mac", s.mac, "operation", op, "reason", reason)
	c.events.Publish(EventSessionFailed, res)
	c.record(ctx, started, s.mac, name, op, history.OutcomeFailed, reason)
	return res
}

// record appends one entry to the operations log. History failures are
// logged, not surfaced: the log is an audit trail, not a dependency.
func (c *Core) record(ctx context.Context, started time.Time, mac, name, op, outcome, reason string) {
	entry := history.Entry{
		MAC:       mac,
		Name:      name,
		Operation: op,
		Outcome:   outcome,
		Reason:    reason,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	// The request context may already be cancelled when a session fails.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.history.Record(rctx, entry); err != nil {
		c.logger.Warn("recording history failed", "error", err)
	}
}
