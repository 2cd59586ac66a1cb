package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/services"
)

// QuantityDeltaRequest is the body of an order or receipt confirmation.
// One request per confirmed physical action; duplicates double-count.
type QuantityDeltaRequest struct {
	Delta int `json:"delta"`
}

// ProcurementHandler exposes the quantity sync endpoints used by the
// procurement UI and the shipment-tracking collaborator.
type ProcurementHandler struct {
	svc    services.QuantityService
	logger *zap.Logger
}

// NewProcurementHandler creates a new ProcurementHandler.
func NewProcurementHandler(svc services.QuantityService, logger *zap.Logger) *ProcurementHandler {
	return &ProcurementHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ProcurementHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/equipment/{id}/order", h.ApplyOrder)
	mux.HandleFunc("POST /api/equipment/{id}/receipt", h.ApplyReceipt)
	mux.HandleFunc("POST /api/projects/{pid}/phases/{phase}/receive-all", h.ReceiveAll)
}

// ApplyOrder handles POST /api/equipment/{id}/order.
func (h *ProcurementHandler) ApplyOrder(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, h.svc.ApplyOrder)
}

// ApplyReceipt handles POST /api/equipment/{id}/receipt.
func (h *ProcurementHandler) ApplyReceipt(w http.ResponseWriter, r *http.Request) {
	h.applyDelta(w, r, h.svc.ApplyReceipt)
}

func (h *ProcurementHandler) applyDelta(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID, delta int) (*models.EquipmentItem, error)) {
	equipmentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_equipment_id", "equipment id must be a UUID")
		return
	}

	var req QuantityDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "body must be JSON with a delta field")
		return
	}
	if req.Delta == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_delta", "delta must be non-zero")
		return
	}

	item, err := apply(r.Context(), equipmentID, req.Delta)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "equipment_not_found", "no such equipment item")
			return
		}
		h.logger.Error("Failed to apply quantity delta",
			zap.String("equipment_id", equipmentID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	if err := WriteJSON(w, http.StatusOK, item); err != nil {
		h.logger.Error("Failed to encode equipment response", zap.Error(err))
	}
}

// ReceiveAll handles POST /api/projects/{pid}/phases/{phase}/receive-all.
func (h *ProcurementHandler) ReceiveAll(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}

	phase, err := models.ParsePhase(r.PathValue("phase"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_phase", err.Error())
		return
	}

	updated, err := h.svc.ApplyFullReceipt(r.Context(), projectID, phase)
	if err != nil {
		h.logger.Error("Failed to apply full receipt",
			zap.String("project_id", projectID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to receive all")
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]int{"updated": updated}); err != nil {
		h.logger.Error("Failed to encode receive-all response", zap.Error(err))
	}
}
