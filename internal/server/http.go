package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/logging"
)

const maxBodyBytes = 4096

// GatewayStatus is the health part of the state document.
type GatewayStatus struct {
	Available   bool       `json:"available"`
	AuthFailed  bool       `json:"auth_failed"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// StateResponse is the body of GET /api/state and every WebSocket message.
type StateResponse struct {
	Gateway GatewayStatus             `json:"gateway"`
	Windows []coordinator.DeviceCover `json:"windows"`
	Rooms   []coordinator.RoomCover   `json:"rooms"`
	Presets []coordinator.Preset      `json:"presets"`
}

// PositionRequest is the body of the position endpoints. Exactly one of
// Open, Action or Preset must be set.
type PositionRequest struct {
	Open   *int   `json:"open,omitempty"`
	Action string `json:"action,omitempty"` // open | close
	Preset string `json:"preset,omitempty"` // rooms only
}

// CommandResponse reports an accepted command.
type CommandResponse struct {
	TargetID      string `json:"target_id"`
	Scope         string `json:"scope"`
	ClosedPercent int    `json:"closed_percent"`
	OpenPercent   int    `json:"open_percent"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// BuildState assembles the state document from a controller.
func BuildState(ctrl Controller) StateResponse {
	snap := ctrl.Snapshot()
	status := GatewayStatus{
		Available:   snap.LastUpdateSuccess,
		AuthFailed:  snap.AuthFailed,
		UpdatedAt:   timePtr(snap.UpdatedAt),
		LastSuccess: timePtr(snap.LastSuccess),
	}
	if snap.Err != nil {
		status.Error = gateway.ShortMessage(snap.Err)
	}

	resp := StateResponse{
		Gateway: status,
		Windows: ctrl.DeviceCovers(),
		Rooms:   ctrl.RoomCovers(),
		Presets: ctrl.Presets(),
	}
	if resp.Windows == nil {
		resp.Windows = []coordinator.DeviceCover{}
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	status := http.StatusOK
	body := map[string]any{"status": "ok", "gateway": snap.LastUpdateSuccess}
	if snap.UpdatedAt.IsZero() {
		body["status"] = "starting"
	} else if !snap.LastUpdateSuccess {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildState(s.ctrl))
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	cover, ok := s.ctrl.DeviceCover(gateway.ID(r.PathValue("id")))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("window %s not found", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, cover)
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	cover := s.ctrl.RoomCover(gateway.ID(r.PathValue("id")))
	if !cover.Exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("room %s not found", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, cover)
}

func (s *Server) handleWindowPosition(w http.ResponseWriter, r *http.Request) {
	id := gateway.ID(r.PathValue("id"))
	req, err := decodePosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Preset != "" {
		writeError(w, http.StatusBadRequest, gateway.NewValidationError("presets apply to rooms only"))
		return
	}
	if s.ctrl.Snapshot().State != nil {
		if _, ok := s.ctrl.DeviceCover(id); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("window %s not found", id))
			return
		}
	}

	var cmd gateway.PositionCommand
	switch {
	case req.Open != nil:
		cmd, err = s.ctrl.SetDevicePosition(r.Context(), id, *req.Open)
	case req.Action == "open":
		cmd, err = s.ctrl.OpenDevice(r.Context(), id)
	default:
		cmd, err = s.ctrl.CloseDevice(r.Context(), id)
	}
	s.writeCommand(w, cmd, err)
}

func (s *Server) handleRoomPosition(w http.ResponseWriter, r *http.Request) {
	id := gateway.ID(r.PathValue("id"))
	req, err := decodePosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.ctrl.Snapshot().State != nil && !s.ctrl.RoomCover(id).Exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("room %s not found", id))
		return
	}

	var cmd gateway.PositionCommand
	switch {
	case req.Open != nil:
		cmd, err = s.ctrl.SetRoomPosition(r.Context(), id, *req.Open)
	case req.Preset != "":
		cmd, err = s.ctrl.ApplyRoomPreset(r.Context(), id, req.Preset)
	case req.Action == "open":
		cmd, err = s.ctrl.OpenRoom(r.Context(), id)
	default:
		cmd, err = s.ctrl.CloseRoom(r.Context(), id)
	}
	s.writeCommand(w, cmd, err)
}

func (s *Server) writeCommand(w http.ResponseWriter, cmd gateway.PositionCommand, err error) {
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, CommandResponse{
		TargetID:      cmd.TargetID.String(),
		Scope:         cmd.Scope.String(),
		ClosedPercent: cmd.ClosedPercent,
		OpenPercent:   cmd.OpenPercent(),
	})
}

func decodePosition(r *http.Request) (PositionRequest, error) {
	var req PositionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, gateway.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}

	set := 0
	if req.Open != nil {
		set++
		if err := gateway.ValidateOpenPercent(*req.Open); err != nil {
			return req, err
		}
	}
	if req.Action != "" {
		set++
		req.Action = strings.ToLower(req.Action)
		if req.Action != "open" && req.Action != "close" {
			return req, gateway.NewValidationError(fmt.Sprintf("unknown action %q", req.Action))
		}
	}
	if req.Preset != "" {
		set++
	}
	if set != 1 {
		return req, gateway.NewValidationError("exactly one of open, action or preset is required")
	}
	return req, nil
}

// statusForError maps gateway failures onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case gateway.IsValidationError(err):
		return http.StatusBadRequest
	case gateway.IsAuthError(err), gateway.IsTransportError(err), gateway.IsMalformedError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && !gateway.IsValidationError(err) {
		resp.Hint = gateway.TroubleshootingHint(err)
	}
	writeJSON(w, status, resp)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets WebSocket upgrades through the logging middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
