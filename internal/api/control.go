package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/control"
	"github.com/nerrad567/gray-logic-hmi/internal/machine"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// Control actions.
const (
	ActionSetTrue  = "set_true"
	ActionSetFalse = "set_false"
	ActionSetValue = "set_value"
)

// setValueRequest is the body of a set_value action. Value is parsed
// according to the control's mode.
type setValueRequest struct {
	Value json.RawMessage `json:"value"`
}

// handleListControls returns every writable control, sorted by ID.
func (s *Server) handleListControls(w http.ResponseWriter, _ *http.Request) {
	if s.control == nil {
		writeUnavailable(w, "control not configured")
		return
	}
	controls := s.control.List()
	if controls == nil {
		controls = []machine.Control{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": s.control.IsConnected(),
		"controls":  controls,
	})
}

// handleControl performs one PLC write.
//
// Parameter controls and numeric writes need plc:configure; every other
// control needs plc:operate.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if s.control == nil {
		writeUnavailable(w, "control not configured")
		return
	}

	id := chi.URLParam(r, "control")
	action := chi.URLParam(r, "action")

	ctl, err := s.control.Control(id)
	if err != nil {
		writeNotFound(w, "unknown control "+id)
		return
	}

	claims := claimsFromContext(r.Context())
	perm := requiredPermission(ctl)
	if !auth.HasPermission(claims.Role, perm) {
		writeForbidden(w, "missing permission "+string(perm))
		return
	}

	actor := control.Actor{UserID: claims.Subject, Source: audit.SourceAPI}

	switch action {
	case ActionSetTrue:
		err = s.control.SetTrue(r.Context(), id, actor)
	case ActionSetFalse:
		err = s.control.SetFalse(r.Context(), id, actor)
	case ActionSetValue:
		raw, ok := decodeValue(w, r)
		if !ok {
			return
		}
		err = s.control.SetValue(r.Context(), id, raw, actor)
	default:
		writeBadRequest(w, "action must be set_true, set_false or set_value")
		return
	}

	if err != nil {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"control": id,
		"action":  action,
		"status":  "accepted",
	})
}

// requiredPermission returns the permission needed to write ctl.
func requiredPermission(ctl machine.Control) auth.Permission {
	if ctl.Kind == machine.ControlParameter || ctl.Mode != plc.ModeBool {
		return auth.PermPLCConfigure
	}
	return auth.PermPLCOperate
}

// decodeValue reads the set_value body. Numbers and strings are both
// accepted and passed on as their literal text.
func decodeValue(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "value is required")
		} else {
			writeBadRequest(w, "invalid JSON body")
		}
		return "", false
	}
	if len(req.Value) == 0 || string(req.Value) == "null" {
		writeBadRequest(w, "value is required")
		return "", false
	}

	var str string
	if err := json.Unmarshal(req.Value, &str); err == nil {
		return str, true
	}
	return string(req.Value), true
}

func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrUnknownControl):
		writeNotFound(w, err.Error())
	case errors.Is(err, control.ErrNotBoolean), errors.Is(err, control.ErrInvalidValue):
		writeValidation(w, err.Error())
	case errors.Is(err, control.ErrNotConnected):
		writeUnavailable(w, err.Error())
	default:
		writeError(w, http.StatusBadGateway, ErrCodeWriteFailed, err.Error())
	}
}
