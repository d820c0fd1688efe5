package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/masquerade-core/internal/masquerade"
	"github.com/nerrad567/masquerade-core/internal/scaling"
)

// History query limits.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleListMasquerades returns registered devices, optionally filtered by
// kind, base_device_id and enabled.
func (s *Server) handleListMasquerades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var devices []masquerade.Device
	if raw := q.Get("base_device_id"); raw != "" {
		baseID, err := parseDeviceID(raw)
		if err != nil {
			writeBadRequest(w, "invalid base_device_id")
			return
		}
		devices = s.registry.FindByBaseDevice(baseID)
	} else {
		devices = s.registry.List()
	}

	if raw := q.Get("kind"); raw != "" {
		kind := masquerade.Kind(raw)
		if !kind.Valid() {
			writeBadRequest(w, "unknown kind: "+raw)
			return
		}
		devices = filterDevices(devices, func(d masquerade.Device) bool { return d.Kind == kind })
	}

	if raw := q.Get("enabled"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "invalid enabled filter")
			return
		}
		devices = filterDevices(devices, func(d masquerade.Device) bool { return d.Enabled == enabled })
	}

	if devices == nil {
		devices = []masquerade.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"masquerades": devices,
		"count":       len(devices),
	})
}

func (s *Server) handleMasqueradeStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

func (s *Server) handleGetMasquerade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}

	dev, err := s.registry.Get(id)
	if err != nil {
		writeNotFound(w, "masquerade device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, err := s.registry.Get(id); err != nil {
		writeNotFound(w, "masquerade device not found")
		return
	}
	if s.history == nil {
		writeUnavailable(w, "history unavailable")
		return
	}

	entries, err := s.history.List(r.Context(), int64(id), limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"history":   entries,
		"count":     len(entries),
	})
}

// actionBody is the body of POST /masquerades/{id}/actions.
type actionBody struct {
	Action masquerade.ActionKind `json:"action"`
	Value  *int                  `json:"value,omitempty"`
}

func (s *Server) handleRequestAction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}

	var body actionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Action == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "action is required")
		return
	}

	if s.actions == nil {
		writeUnavailable(w, "actions unavailable")
		return
	}

	req := masquerade.ActionRequest{DeviceID: id, Kind: body.Action, Value: body.Value}
	if err := s.actions.RequestAction(r.Context(), req); err != nil {
		s.writeActionError(w, r, req, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"device_id":  id,
		"action":     body.Action,
		"request_id": requestID(r.Context()),
	})
}

// writeActionError maps action errors onto HTTP statuses.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, req masquerade.ActionRequest, err error) {
	switch {
	case errors.Is(err, masquerade.ErrNotFound):
		writeNotFound(w, "masquerade device not found")
	case errors.Is(err, masquerade.ErrUnsupportedAction),
		errors.Is(err, masquerade.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, masquerade.ErrDeviceDisabled),
		errors.Is(err, masquerade.ErrBaseComponentDisabled):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, scaling.ErrUnknownValueFormat):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("action failed",
			"device_id", req.DeviceID,
			"action", req.Kind,
			"request_id", requestID(r.Context()),
			"error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "action could not be delivered")
	}
}

// deviceFromPath parses {id}; it writes a 400 and returns false when invalid.
func (s *Server) deviceFromPath(w http.ResponseWriter, r *http.Request) (masquerade.DeviceID, bool) {
	id, err := parseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid device ID")
		return 0, false
	}
	return id, true
}

func parseDeviceID(raw string) (masquerade.DeviceID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid device ID %q", raw)
	}
	return masquerade.DeviceID(id), nil
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}
	return limit, nil
}

func filterDevices(devices []masquerade.Device, keep func(masquerade.Device) bool) []masquerade.Device {
	out := devices[:0]
	for _, d := range devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
