// Package config provides configuration loading for audioctl.
//
// Configuration is read from a YAML file, with defaults applied for any
// missing values and environment variable overrides applied last
// (AUDIOCTL_SECTION_KEY, e.g. AUDIOCTL_API_PORT).
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// When no config file exists, Default() returns the built-in defaults,
// which are tuned for a Linux host running PulseAudio/PipeWire (pactl)
// and BlueZ (bluetoothctl).
package config
