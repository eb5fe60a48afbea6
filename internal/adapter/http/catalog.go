package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

func (h *handlers) listDefinitions(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "includeInactive", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	defs, err := h.svc.Definitions.ListDefinitions(r.Context(), !includeInactive)
	if err != nil {
		h.respondServiceError(w, r, "list crop definitions", err)
		return
	}
	if defs == nil {
		defs = []domain.CropDefinition{}
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgDefinitionsFetched, Data: defs})
}

func (h *handlers) getDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := h.svc.Definitions.GetDefinition(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		// An unknown code is a bad reference elsewhere but a missing resource here.
		if errors.Is(err, domain.ErrCropDefinitionNotFound) {
			respondError(w, http.StatusNotFound, userMessage(err, domain.ErrBadRequest))
			return
		}
		h.respondServiceError(w, r, "get crop definition", err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Message: MsgDefinitionFetched, Data: def})
}
