package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"libdb.so/emberglow/internal/effects"
	"libdb.so/emberglow/internal/scheduler"
)

// maxBodySize bounds the JSON body of /start_effect.
const maxBodySize = 1 << 16

// startEffect starts the effect named by the "effect" key of the JSON body.
// Every other key is an effect parameter.
func (h *handler) startEffect(w http.ResponseWriter, r *http.Request) {
	var body map[string]any

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	name, ok := body["effect"].(string)
	if !ok || name == "" {
		writeError(w, http.StatusBadRequest, "Missing parameter: effect")
		return
	}
	delete(body, "effect")

	err := h.ctrl.Start(r.Context(), name, effects.Params(body))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, statusOK)
	case errors.Is(err, scheduler.ErrEffectNotFound):
		writeError(w, http.StatusBadRequest, "Unknown effect: "+name)
	default:
		h.logger.Error("failed to start effect", "effect", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (h *handler) stopAll(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.StopAll(r.Context()); err != nil {
		h.logger.Error("failed to stop effects", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, statusOK)
}
