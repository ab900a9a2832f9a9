package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dwetherby/audioctl/internal/audio"
	"github.com/dwetherby/audioctl/internal/device"
)

// setVolumeRequest is the body for POST /api/volume.
type setVolumeRequest struct {
	Volume *int `json:"volume"`
}

// selectDeviceRequest is the body for POST /api/device/select. The
// device_name is a sink name or, for Bluetooth devices, a MAC address.
type selectDeviceRequest struct {
	DeviceName string `json:"device_name"`
}

// handleListDevices returns the merged device snapshot, active device first.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.core.Devices(r.Context())
	if err != nil {
		writeBackendError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleActiveDevice returns the current default output device.
func (s *Server) handleActiveDevice(w http.ResponseWriter, r *http.Request) {
	active, err := s.core.Active(r.Context())
	if err != nil {
		if errors.Is(err, device.ErrNoActiveDevice) {
			writeNotFound(w, "no active output device")
			return
		}
		writeBackendError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// handleSetVolume sets the active device's volume.
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req setVolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Volume == nil {
		writeBadRequest(w, "volume is required")
		return
	}

	updated, err := s.core.SetVolume(r.Context(), *req.Volume)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrInvalidVolume):
			writeBadRequest(w, err.Error())
		case errors.Is(err, device.ErrNoActiveDevice):
			writeNotFound(w, "no active output device")
		case errors.Is(err, audio.ErrSinkNotFound):
			// The sink vanished between the snapshot and the mutation.
			writeNotFound(w, err.Error())
		default:
			writeBackendError(w, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleSelectDevice makes the given device the default output.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req selectDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceName == "" {
		writeBadRequest(w, "device_name is required")
		return
	}

	selected, err := s.core.SelectDevice(r.Context(), req.DeviceName)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, audio.ErrSinkNotFound):
			writeNotFound(w, err.Error())
		case errors.Is(err, device.ErrDeviceNotRoutable):
			writeConflict(w, err.Error())
		default:
			writeBackendError(w, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, selected)
}
