package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/crop-risk-service/internal/cropcycle"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// CreateCropCycleRequest is the body of POST /v1/crop-cycles.
type CreateCropCycleRequest struct {
	CropDefinitionCode     string     `json:"cropDefinitionCode" validate:"required,max=64"`
	VarietyName            string     `json:"varietyName" validate:"max=100"`
	FieldName              string     `json:"fieldName" validate:"max=100"`
	FieldAreaDecimal       *float64   `json:"fieldAreaDecimal" validate:"omitempty,gte=0"`
	StartMode              string     `json:"startMode" validate:"required"`
	StartDate              *time.Time `json:"startDate"`
	Latitude               *float64   `json:"latitude" validate:"omitempty,latitude"`
	Longitude              *float64   `json:"longitude" validate:"omitempty,longitude"`
	StorageType            string     `json:"storageType" validate:"max=64"`
	CurrentMoisturePercent *float64   `json:"currentMoisturePercent" validate:"omitempty,gte=0,lte=100"`
}

// UpdateStageRequest is the body of PATCH /v1/crop-cycles/{id}/stage.
type UpdateStageRequest struct {
	NewStage               string     `json:"newStage" validate:"required"`
	Date                   *time.Time `json:"date"`
	StorageType            string     `json:"storageType" validate:"max=64"`
	CurrentMoisturePercent *float64   `json:"currentMoisturePercent" validate:"omitempty,gte=0,lte=100"`
}

func (h *handlers) createCropCycle(w http.ResponseWriter, r *http.Request) {
	var req CreateCropCycleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   ErrMsgValidationFailed,
			Details: map[string]string{"location": "latitude and longitude must be set together"},
		})
		return
	}

	in := cropcycle.CreateInput{
		FarmerID:               farmerID(r),
		CropDefinitionCode:     req.CropDefinitionCode,
		VarietyName:            req.VarietyName,
		FieldName:              req.FieldName,
		FieldAreaDecimal:       req.FieldAreaDecimal,
		StartMode:              cropcycle.StartMode(req.StartMode),
		StartDate:              req.StartDate,
		StorageType:            req.StorageType,
		CurrentMoisturePercent: req.CurrentMoisturePercent,
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.Location = &orb.Point{*req.Longitude, *req.Latitude}
	}

	cycle, err := h.svc.CropCycles.Create(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, r, "create crop cycle", err)
		return
	}
	respondJSON(w, http.StatusCreated, DataResponse{Message: MsgCropAdded, Data: cycle})
}

func (h *handlers) listCropCycles(w http.ResponseWriter, r *http.Request) {
	includeCompleted, err := queryBool(r, "includeCompleted", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cycles, err := h.svc.CropCycles.List(r.Context(), farmerID(r), includeCompleted)
	if err != nil {
		h.respondServiceError(w, r, "list crop cycles", err)
		return
	}
	if cycles == nil {
		cycles = []domain.CropCycle{}
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgCropsFetched, Data: cycles})
}

func (h *handlers) getCropCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.svc.CropCycles.Get(r.Context(), farmerID(r), chi.URLParam(r, "cropCycleID"))
	if err != nil {
		h.respondServiceError(w, r, "get crop cycle", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgCropFetched, Data: cycle})
}

func (h *handlers) updateStage(w http.ResponseWriter, r *http.Request) {
	var req UpdateStageRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		return
	}

	cycle, err := h.svc.CropCycles.UpdateStage(r.Context(), cropcycle.StageUpdate{
		FarmerID:               farmerID(r),
		CropCycleID:            chi.URLParam(r, "cropCycleID"),
		NewStage:               domain.LifecycleStage(req.NewStage),
		Date:                   req.Date,
		StorageType:            req.StorageType,
		CurrentMoisturePercent: req.CurrentMoisturePercent,
	})
	if err != nil {
		h.respondServiceError(w, r, "update crop stage", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgCropStageUpdated, Data: cycle})
}
