package controller

import (
	"net/http"

	"github.com/cassiomorais/marketsync/internal/telemetry"
)

type TelemetryController struct {
	recorder *telemetry.Recorder
}

func NewTelemetryController(recorder *telemetry.Recorder) *TelemetryController {
	return &TelemetryController{recorder: recorder}
}

func (h *TelemetryController) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recorder.Snapshot())
}
