package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the pulse backend.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// PulseConfig configures the pactl-based backend.
type PulseConfig struct {
	// Binary is the path to the pactl executable.
	Binary string

	// CommandTimeout bounds each pactl invocation.
	CommandTimeout time.Duration
}

// PulseBackend talks to PulseAudio (or PipeWire's PulseAudio shim) by
// shelling out to pactl. Sink listings use pactl's JSON output so parsing
// has a stable schema instead of scraping the human-readable format.
//
// Mutating calls are serialized by an internal mutex; the sound server is
// a single shared resource with no locking guarantee of its own.
type PulseBackend struct {
	binary  string
	timeout time.Duration
	logger  Logger

	// mutateMu serializes set-volume and set-default calls.
	mutateMu sync.Mutex
}

// NewPulseBackend creates a pactl-based audio backend.
func NewPulseBackend(cfg PulseConfig) *PulseBackend {
	if cfg.Binary == "" {
		cfg.Binary = "pactl"
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	return &PulseBackend{
		binary:  cfg.Binary,
		timeout: cfg.CommandTimeout,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the backend.
func (b *PulseBackend) SetLogger(logger Logger) {
	b.logger = logger
}

// ListSinks returns the current sink snapshot.
//
// It issues two pactl calls: a JSON sink listing and a default-sink query.
// A missing default sink is not an error; no sink is flagged IsDefault.
func (b *PulseBackend) ListSinks(ctx context.Context) ([]Sink, error) {
	out, err := b.run(ctx, "--format=json", "list", "sinks")
	if err != nil {
		return nil, err
	}

	sinks, err := parseSinks(out)
	if err != nil {
		return nil, err
	}

	defaultSink, err := b.defaultSinkName(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sinks {
		sinks[i].IsDefault = sinks[i].ID == defaultSink
	}

	return sinks, nil
}

// SetVolume sets the volume of the given sink to an integer percent.
func (b *PulseBackend) SetVolume(ctx context.Context, id string, percent int) error {
	b.mutateMu.Lock()
	defer b.mutateMu.Unlock()

	_, err := b.run(ctx, "set-sink-volume", id, strconv.Itoa(percent)+"%")
	return err
}

// SetDefault makes the given sink the default output.
func (b *PulseBackend) SetDefault(ctx context.Context, id string) error {
	b.mutateMu.Lock()
	defer b.mutateMu.Unlock()

	_, err := b.run(ctx, "set-default-sink", id)
	return err
}

// defaultSinkName returns the name of the current default sink, or ""
// if the sound server reports none.
func (b *PulseBackend) defaultSinkName(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "get-default-sink")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// run executes pactl with the given arguments under the command timeout.
// Any execution failure or nonzero exit is reported as ErrBackend with
// stderr included for diagnosis.
func (b *PulseBackend) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.binary, args...) //nolint:gosec // Binary path comes from validated config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("running pactl", "args", args)
	if err := cmd.Run(); err != nil {
		return nil, wrapRunError(args, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// wrapRunError classifies a failed pactl invocation. pactl reports an
// unknown sink name as "No such entity" on stderr; that case gets its own
// sentinel so callers can tell a vanished sink from a dead sound server.
func wrapRunError(args []string, err error, stderr string) error {
	sentinel := ErrBackend
	if strings.Contains(stderr, "No such entity") {
		sentinel = ErrSinkNotFound
	}
	return fmt.Errorf("%w: pactl %s: %v (%s)", sentinel, strings.Join(args, " "), err, stderr)
}

// pactlSink mirrors the subset of pactl's JSON sink schema we consume.
type pactlSink struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Mute        bool                    `json:"mute"`
	Volume      map[string]pactlChannel `json:"volume"`
}

// pactlChannel is one channel's volume entry, e.g. {"value_percent": "40%"}.
type pactlChannel struct {
	ValuePercent string `json:"value_percent"`
}

// parseSinks decodes pactl's JSON sink listing into Sink values.
// Malformed output is a backend error, never a silent default.
func parseSinks(data []byte) ([]Sink, error) {
	var raw []pactlSink
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing sink listing: %v", ErrBackend, err)
	}

	sinks := make([]Sink, 0, len(raw))
	for _, s := range raw {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: sink entry missing name", ErrBackend)
		}

		volume, err := flatVolume(s.Volume)
		if err != nil {
			return nil, fmt.Errorf("%w: sink %s: %v", ErrBackend, s.Name, err)
		}

		sinks = append(sinks, Sink{
			ID:          s.Name,
			Description: s.Description,
			Volume:      volume,
			Muted:       s.Mute,
		})
	}

	return sinks, nil
}

// flatVolume averages the per-channel percentages into a single value,
// matching the sound server's flat-volume presentation.
func flatVolume(channels map[string]pactlChannel) (int, error) {
	if len(channels) == 0 {
		return 0, nil
	}

	total := 0
	for name, ch := range channels {
		pct := strings.TrimSuffix(strings.TrimSpace(ch.ValuePercent), "%")
		v, err := strconv.Atoi(pct)
		if err != nil {
			return 0, fmt.Errorf("channel %s: bad volume %q", name, ch.ValuePercent)
		}
		total += v
	}

	return total / len(channels), nil
}
