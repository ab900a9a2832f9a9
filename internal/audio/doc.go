// Package audio provides the sound-server backend for audioctl.
//
// The Backend interface is the narrow boundary the registry talks
// through: list sinks (with the default flag resolved), set a sink's
// volume, and change the default sink. The production implementation,
// PulseBackend, shells out to pactl and parses its JSON output; parse
// failures surface as ErrBackend rather than silent defaults, so the
// device list never reflects guessed state.
//
// # Usage
//
//	backend := audio.NewPulseBackend(audio.PulseConfig{
//	    Binary:         cfg.Audio.Binary,
//	    CommandTimeout: cfg.Audio.CommandTimeoutDuration(),
//	})
//	backend.SetLogger(log)
//
//	sinks, err := backend.ListSinks(ctx)
package audio
