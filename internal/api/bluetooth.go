package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dwetherby/audioctl/internal/bluetooth"
	"github.com/dwetherby/audioctl/internal/core"
	"github.com/dwetherby/audioctl/internal/history"
)

// sessionRequest is the body for pair and connect requests. The name is
// optional; the service falls back to the name seen during a scan.
type sessionRequest struct {
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

// handleScan runs one blocking discovery scan. Scans are single-flight:
// a second request while one is running gets 409.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	found, err := s.core.Scan(r.Context())
	if err != nil {
		if errors.Is(err, core.ErrScanInProgress) {
			writeConflict(w, "scan already in progress")
			return
		}
		writeBackendError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": found,
		"count":   len(found),
	})
}

// handlePair runs one blocking pairing session. A failed session is still
// a 200: the outcome comes back in the result's state and reason, since
// the request itself was handled.
func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	mac, name, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	result, err := s.core.Pair(r.Context(), mac, name)
	if err != nil {
		if errors.Is(err, bluetooth.ErrInvalidAddress) {
			writeBadRequest(w, err.Error())
			return
		}
		writeBackendError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleConnect runs one blocking connection session, same outcome
// contract as handlePair.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	mac, name, ok := decodeSessionRequest(w, r)
	if !ok {
		return
	}

	result, err := s.core.Connect(r.Context(), mac, name)
	if err != nil {
		if errors.Is(err, bluetooth.ErrInvalidAddress) {
			writeBadRequest(w, err.Error())
			return
		}
		writeBackendError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory returns recent Bluetooth operations, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyRepo == nil {
		writeNotFound(w, "history is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.historyRepo.Recent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// decodeSessionRequest extracts the MAC and optional name from a
// pair/connect body.
func decodeSessionRequest(w http.ResponseWriter, r *http.Request) (mac, name string, ok bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return "", "", false
	}
	if req.MAC == "" {
		writeBadRequest(w, "mac is required")
		return "", "", false
	}
	return req.MAC, req.Name, true
}
