package audio

import (
	"errors"
	"testing"
)

func TestParseSinks(t *testing.T) {
	data := []byte(`[
		{
			"name": "alsa_output.pci-0000_00_1f.3.analog-stereo",
			"description": "Built-in Audio Analog Stereo",
			"mute": false,
			"volume": {
				"front-left": {"value": 26214, "value_percent": "40%", "db": "-23.89 dB"},
				"front-right": {"value": 26214, "value_percent": "40%", "db": "-23.89 dB"}
			}
		},
		{
			"name": "bluez_output.AA_BB_CC_DD_EE_FF.1",
			"description": "Headphones",
			"mute": true,
			"volume": {
				"mono": {"value": 65536, "value_percent": "100%", "db": "0.00 dB"}
			}
		}
	]`)

	sinks, err := parseSinks(data)
	if err != nil {
		t.Fatalf("parseSinks() error = %v", err)
	}

	if len(sinks) != 2 {
		t.Fatalf("parseSinks() returned %d sinks, want 2", len(sinks))
	}

	first := sinks[0]
	if first.ID != "alsa_output.pci-0000_00_1f.3.analog-stereo" {
		t.Errorf("ID = %q", first.ID)
	}
	if first.Description != "Built-in Audio Analog Stereo" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.Volume != 40 {
		t.Errorf("Volume = %d, want 40", first.Volume)
	}
	if first.Muted {
		t.Error("Muted = true, want false")
	}

	second := sinks[1]
	if second.Volume != 100 {
		t.Errorf("Volume = %d, want 100", second.Volume)
	}
	if !second.Muted {
		t.Error("Muted = false, want true")
	}
}

func TestParseSinks_AveragesChannels(t *testing.T) {
	data := []byte(`[
		{
			"name": "test-sink",
			"description": "Test",
			"mute": false,
			"volume": {
				"front-left": {"value_percent": "30%"},
				"front-right": {"value_percent": "50%"}
			}
		}
	]`)

	sinks, err := parseSinks(data)
	if err != nil {
		t.Fatalf("parseSinks() error = %v", err)
	}
	if sinks[0].Volume != 40 {
		t.Errorf("Volume = %d, want averaged 40", sinks[0].Volume)
	}
}

func TestParseSinks_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `Sink #0 State: RUNNING`},
		{name: "missing name", data: `[{"description": "x", "volume": {}}]`},
		{name: "bad volume percent", data: `[{"name": "s", "volume": {"mono": {"value_percent": "loud"}}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSinks([]byte(tt.data))
			if err == nil {
				t.Fatal("parseSinks() expected error, got nil")
			}
			if !errors.Is(err, ErrBackend) {
				t.Errorf("error = %v, want ErrBackend", err)
			}
		})
	}
}

func TestParseSinks_Empty(t *testing.T) {
	sinks, err := parseSinks([]byte(`[]`))
	if err != nil {
		t.Fatalf("parseSinks() error = %v", err)
	}
	if len(sinks) != 0 {
		t.Errorf("parseSinks() returned %d sinks, want 0", len(sinks))
	}
}

func TestWrapRunError(t *testing.T) {
	exitErr := errors.New("exit status 1")

	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"unknown sink", "Failure: No such entity", ErrSinkNotFound},
		{"server unreachable", "Connection failure: Connection refused", ErrBackend},
		{"empty stderr", "", ErrBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapRunError([]string{"set-default-sink", "gone"}, exitErr, tt.stderr)
			if !errors.Is(err, tt.want) {
				t.Errorf("wrapRunError() = %v, want %v", err, tt.want)
			}
		})
	}
}
