package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 200
)

// ComputeRiskRequest is the body of POST /v1/crop-cycles/{id}/risk.
type ComputeRiskRequest struct {
	Latitude               *float64 `json:"latitude" validate:"required,latitude"`
	Longitude              *float64 `json:"longitude" validate:"required,longitude"`
	CurrentMoisturePercent *float64 `json:"currentMoisturePercent" validate:"omitempty,gte=0,lte=100"`
	Source                 string   `json:"source"`
}

func (h *handlers) computeRisk(w http.ResponseWriter, r *http.Request) {
	var req ComputeRiskRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return
	}

	result, err := h.svc.Risk.ComputeForCropCycle(r.Context(), risk.Request{
		FarmerID:               farmerID(r),
		CropCycleID:            chi.URLParam(r, "cropCycleID"),
		Source:                 domain.ParseRiskSource(req.Source),
		Location:               orb.Point{*req.Longitude, *req.Latitude},
		CurrentMoisturePercent: req.CurrentMoisturePercent,
	})
	if err != nil {
		h.respondServiceError(w, r, "compute risk", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgETCLComputed, Data: result})
}

func (h *handlers) listSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultSnapshotLimit, maxSnapshotLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	farmer, cycleID := farmerID(r), chi.URLParam(r, "cropCycleID")
	if _, err := h.svc.CropCycles.Get(r.Context(), farmer, cycleID); err != nil {
		h.respondServiceError(w, r, "list risk snapshots", err)
		return
	}

	snapshots, err := h.svc.Snapshots.ListSnapshots(r.Context(), farmer, cycleID, limit)
	if err != nil {
		h.respondServiceError(w, r, "list risk snapshots", err)
		return
	}
	if snapshots == nil {
		snapshots = []domain.RiskSnapshot{}
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgSnapshotsFetched, Data: snapshots})
}
