package bluetooth

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Logger defines the logging interface used by the bluetoothctl backend.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// discoverBuffer is the channel buffer for streamed discovery reports.
const discoverBuffer = 16

// BluetoothctlConfig configures the bluetoothctl-based backend.
type BluetoothctlConfig struct {
	// Binary is the path to the bluetoothctl executable.
	Binary string

	// CommandTimeout bounds short queries (device listing, info, trust).
	// Pair and Connect are bounded by their caller's context instead.
	CommandTimeout time.Duration
}

// BluetoothctlBackend drives the host BlueZ stack by shelling out to
// bluetoothctl. Discovery runs `bluetoothctl --timeout N scan on` and
// streams the [NEW] device lines as they appear; pair/connect mirror the
// interactive commands, with their exit codes and output sniffed the way
// bluetoothctl requires (a nonzero exit with "AlreadyExists" is a
// successful pair, "Connection successful" on stdout is a successful
// connect regardless of exit code).
type BluetoothctlBackend struct {
	binary  string
	timeout time.Duration
	logger  Logger
}

// NewBluetoothctlBackend creates a bluetoothctl-based backend.
func NewBluetoothctlBackend(cfg BluetoothctlConfig) *BluetoothctlBackend {
	if cfg.Binary == "" {
		cfg.Binary = "bluetoothctl"
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	return &BluetoothctlBackend{
		binary:  cfg.Binary,
		timeout: cfg.CommandTimeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the backend.
func (b *BluetoothctlBackend) SetLogger(logger Logger) {
	b.logger = logger
}

// scanLineRE matches a discovery report line:
//
//	[NEW] Device AA:BB:CC:DD:EE:FF Headphones
var scanLineRE = regexp.MustCompile(`\[NEW\]\s+Device\s+((?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2})\s+(.+)$`)

// deviceLineRE matches a device listing line:
//
//	Device AA:BB:CC:DD:EE:FF Headphones
var deviceLineRE = regexp.MustCompile(`^Device\s+((?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2})\s+(.+)$`)

// ansiRE strips terminal escape sequences bluetoothctl emits on some hosts.
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m|\x01|\x02`)

// Discover scans for nearby devices for the given window.
//
// It launches `bluetoothctl --timeout N scan on`, which exits by itself
// once the window elapses, and streams [NEW] device lines from its output.
// After the scan process exits, the adapter's full device list is swept so
// devices that appeared before the pipe was attached are still reported.
// The returned channel is closed when the sweep completes.
func (b *BluetoothctlBackend) Discover(ctx context.Context, window time.Duration) (<-chan Found, error) {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}

	// Grace period so the subprocess can exit on its own --timeout before
	// the context kills it.
	scanCtx, cancel := context.WithTimeout(ctx, window+b.timeout)

	cmd := exec.CommandContext(scanCtx, b.binary, "--timeout", strconv.Itoa(secs), "scan", "on") //nolint:gosec // Binary path comes from validated config
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: creating scan pipe: %v", ErrBackend, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: starting scan: %v", ErrBackend, err)
	}

	b.logger.Debug("bluetooth scan started", "window_seconds", secs)

	ch := make(chan Found, discoverBuffer)
	go func() {
		defer close(ch)
		defer cancel()

		seen := make(map[string]bool)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			f, ok := parseScanLine(scanner.Text())
			if !ok || seen[f.MAC] {
				continue
			}
			seen[f.MAC] = true
			select {
			case ch <- f:
			case <-scanCtx.Done():
				// Process is being killed; the scanner will hit EOF.
			}
		}

		if err := cmd.Wait(); err != nil && scanCtx.Err() == nil {
			b.logger.Warn("bluetooth scan exited with error", "error", err)
		}

		// Sweep the full device list: discovery can report devices before
		// the pipe is attached, and known devices don't reprint as [NEW].
		devices, err := b.deviceList(ctx)
		if err != nil {
			b.logger.Warn("post-scan device sweep failed", "error", err)
			return
		}
		for _, d := range devices {
			if seen[d.MAC] {
				continue
			}
			seen[d.MAC] = true
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// PairedDevices returns the adapter's paired-device snapshot, with the
// connected flag resolved per device via `bluetoothctl info`.
func (b *BluetoothctlBackend) PairedDevices(ctx context.Context) ([]PairedDevice, error) {
	out, err := b.runShort(ctx, "devices", "Paired")
	if err != nil {
		return nil, err
	}

	found, err := parseDeviceList(out)
	if err != nil {
		return nil, err
	}

	devices := make([]PairedDevice, 0, len(found))
	for _, f := range found {
		info, err := b.runShort(ctx, "info", f.MAC)
		if err != nil {
			return nil, err
		}
		devices = append(devices, PairedDevice{
			MAC:       f.MAC,
			Name:      f.Name,
			Connected: parseConnectedFlag(info),
		})
	}

	return devices, nil
}

// Pair pairs with the given device and marks it trusted so the stack will
// accept future connections without prompting. An AlreadyExists response
// from the stack counts as success.
func (b *BluetoothctlBackend) Pair(ctx context.Context, mac string) error {
	if !ValidMAC(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, mac)
	}

	out, err := b.run(ctx, "pair", mac)
	if err != nil && !strings.Contains(out, "AlreadyExists") {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrPairFailed, firstLine(out))
	}

	// Trust is best-effort; an untrusted but paired device still works,
	// it just needs manual confirmation on some stacks.
	if _, err := b.runShort(ctx, "trust", mac); err != nil {
		b.logger.Warn("trust failed after pair", "mac", mac, "error", err)
	}

	return nil
}

// Connect connects to the given device. bluetoothctl sometimes exits
// nonzero even when the connection succeeded, so stdout is checked for
// its success marker before the exit code is believed.
func (b *BluetoothctlBackend) Connect(ctx context.Context, mac string) error {
	if !ValidMAC(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, mac)
	}

	out, err := b.run(ctx, "connect", mac)
	if err == nil || strings.Contains(out, "Connection successful") {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s", ErrConnectFailed, firstLine(out))
}

// Cancel aborts an in-flight pairing attempt for the given device.
// It runs on its own short deadline: the caller's context is typically
// already cancelled when a session is superseded.
func (b *BluetoothctlBackend) Cancel(_ context.Context, mac string) error {
	if !ValidMAC(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, mac)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_, err := b.run(ctx, "cancel-pairing", mac)
	return err
}

// deviceList returns the adapter's full device listing (paired and
// discovered).
func (b *BluetoothctlBackend) deviceList(ctx context.Context) ([]Found, error) {
	out, err := b.runShort(ctx, "devices")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(out)
}

// runShort executes bluetoothctl with the short-query timeout applied.
func (b *BluetoothctlBackend) runShort(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.run(ctx, args...)
}

// run executes bluetoothctl with the given arguments, returning combined
// output. The output is returned even on error so callers can sniff the
// stack's responses.
func (b *BluetoothctlBackend) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, b.binary, args...) //nolint:gosec // Binary path comes from validated config

	b.logger.Debug("running bluetoothctl", "args", args)
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		return output, fmt.Errorf("%w: bluetoothctl %s: %v", ErrBackend, strings.Join(args, " "), err)
	}
	return output, nil
}

// parseScanLine extracts a discovery report from one line of scan output.
func parseScanLine(line string) (Found, bool) {
	line = ansiRE.ReplaceAllString(line, "")
	m := scanLineRE.FindStringSubmatch(line)
	if m == nil {
		return Found{}, false
	}
	return Found{
		MAC:  strings.ToUpper(m[1]),
		Name: strings.TrimSpace(m[2]),
	}, true
}

// parseDeviceList parses `bluetoothctl devices` output into Found entries.
// Unrecognised nonempty lines are a backend error so garbage output never
// masquerades as an empty adapter.
func parseDeviceList(out string) ([]Found, error) {
	var devices []Found
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(ansiRE.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		m := deviceLineRE.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: unexpected device line %q", ErrBackend, line)
		}
		devices = append(devices, Found{
			MAC:  strings.ToUpper(m[1]),
			Name: strings.TrimSpace(m[2]),
		})
	}
	return devices, nil
}

// parseConnectedFlag reports whether `bluetoothctl info` output says the
// device is connected.
func parseConnectedFlag(out string) bool {
	return strings.Contains(out, "Connected: yes")
}

// firstLine returns the first nonempty line of output, for error reasons.
func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "no output"
}
