package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dwetherby/audioctl/internal/audio"
	"github.com/dwetherby/audioctl/internal/bluetooth"
)

// Logger defines the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Registry merges the audio server's sink inventory with the Bluetooth
// adapter's device inventory into one device list. Every query rebuilds
// the snapshot from the backends so the view never goes stale; the only
// state held here is the scratchpad of devices seen in scans, which the
// backends have no durable record of.
type Registry struct {
	audio audio.Backend
	bt    bluetooth.Backend

	mu         sync.RWMutex
	discovered map[string]string // MAC -> name, seen in a scan this process
	lifecycle  map[string]BluetoothState

	logger Logger
}

// NewRegistry creates a device registry over the given backends.
func NewRegistry(audioBackend audio.Backend, btBackend bluetooth.Backend) *Registry {
	return &Registry{
		audio:      audioBackend,
		bt:         btBackend,
		discovered: make(map[string]string),
		lifecycle:  make(map[string]BluetoothState),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// List returns the merged device snapshot, active device first.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	var (
		sinks  []audio.Sink
		paired []bluetooth.PairedDevice
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sinks, err = r.audio.ListSinks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		paired, err = r.bt.PairedDevices(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.merge(sinks, paired), nil
}

// Active returns the current default output device.
func (r *Registry) Active(ctx context.Context) (Device, error) {
	devices, err := r.List(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.IsActive {
			return d, nil
		}
	}
	return Device{}, ErrNoActiveDevice
}

// SetVolume sets the active device's volume and returns its updated record.
func (r *Registry) SetVolume(ctx context.Context, percent int) (Device, error) {
	if percent < 0 || percent > 100 {
		return Device{}, fmt.Errorf("%w: %d", ErrInvalidVolume, percent)
	}

	active, err := r.Active(ctx)
	if err != nil {
		return Device{}, err
	}

	if err := r.audio.SetVolume(ctx, active.ID, percent); err != nil {
		return Device{}, err
	}

	active.Volume = &percent
	return active, nil
}

// Select makes the given device the default output. The id may be a sink
// name or, for Bluetooth devices, a MAC address. The snapshot is taken
// fresh so a device that just connected is immediately selectable.
func (r *Registry) Select(ctx context.Context, id string) (Device, error) {
	devices, err := r.List(ctx)
	if err != nil {
		return Device{}, err
	}

	target, ok := findDevice(devices, id)
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}
	if !target.Routable() {
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotRoutable, id)
	}

	if err := r.audio.SetDefault(ctx, target.ID); err != nil {
		return Device{}, err
	}

	r.logger.Debug("default output changed", "device", target.ID)
	target.IsActive = true
	return target, nil
}

// MarkDiscovered records a device seen during a scan so it appears in
// snapshots until it is paired or the process restarts.
func (r *Registry) MarkDiscovered(mac, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered[mac] = name
	if r.lifecycle[mac] == StateNone {
		r.lifecycle[mac] = StateDiscovered
	}
}

// DiscoveredName returns the name recorded for a device during a scan,
// or "" when the device was never seen.
func (r *Registry) DiscoveredName(mac string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.discovered[mac]
}

// SetLifecycle overrides the lifecycle state shown for a Bluetooth device.
// Pairing sessions advance this as they progress; the merged snapshot
// still prefers what the backends report when they know better.
func (r *Registry) SetLifecycle(mac string, state BluetoothState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle[mac] = state
}

// merge builds the unified device list: sinks first, then paired devices
// without sinks, then scan-only devices, with the active device moved to
// the front.
func (r *Registry) merge(sinks []audio.Sink, paired []bluetooth.PairedDevice) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(sinks)+len(paired))
	byMAC := make(map[string]bool)

	for _, s := range sinks {
		vol := s.Volume
		d := Device{
			ID:          s.ID,
			DisplayName: s.Description,
			Kind:        classifySink(s.ID),
			Volume:      &vol,
			Muted:       s.Muted,
			IsActive:    s.IsDefault,
		}
		if d.Kind == KindBluetooth {
			d.MAC = macFromSinkName(s.ID)
			d.BluetoothState = StateConnected
			if d.MAC != "" {
				byMAC[d.MAC] = true
			}
		}
		devices = append(devices, d)
	}

	for _, p := range paired {
		if byMAC[p.MAC] {
			continue
		}
		byMAC[p.MAC] = true
		state := StatePaired
		if p.Connected {
			// Connected at the stack but no sink yet; still not routable.
			state = StateConnected
		}
		devices = append(devices, Device{
			ID:             p.MAC,
			DisplayName:    p.Name,
			Kind:           KindBluetooth,
			MAC:            p.MAC,
			BluetoothState: state,
		})
	}

	macs := make([]string, 0, len(r.discovered))
	for mac := range r.discovered {
		if !byMAC[mac] {
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	for _, mac := range macs {
		state := r.lifecycle[mac]
		if state == StateNone {
			state = StateDiscovered
		}
		devices = append(devices, Device{
			ID:             mac,
			DisplayName:    r.discovered[mac],
			Kind:           KindBluetooth,
			MAC:            mac,
			BluetoothState: state,
		})
	}

	// Active device leads; everything else keeps its merge order.
	for i, d := range devices {
		if d.IsActive && i > 0 {
			devices = append([]Device{d}, append(devices[:i:i], devices[i+1:]...)...)
			break
		}
	}

	return devices
}

// findDevice locates a device by ID or MAC address.
func findDevice(devices []Device, id string) (Device, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	if bluetooth.ValidMAC(id) {
		for _, d := range devices {
			if d.MAC != "" && d.MAC == normalizeMAC(id) {
				return d, true
			}
		}
	}
	return Device{}, false
}
