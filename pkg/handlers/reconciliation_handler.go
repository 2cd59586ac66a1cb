package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/proposal"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
	"github.com/sitewire-io/sitewire-engine/pkg/services"
)

// ReimportResponse is the full reconciliation report plus the operator
// summary line. The report is always returned whole; the restoration-failure
// list carries enough descriptive detail to recreate missing links by hand.
type ReimportResponse struct {
	Summary string                       `json:"summary"`
	Report  *models.ReconciliationReport `json:"report"`
}

// ReconciliationHandler exposes the proposal reimport endpoint.
type ReconciliationHandler struct {
	svc         services.ReconciliationService
	projectRepo repositories.ProjectRepository
	maxRows     int
	logger      *zap.Logger

	// Reconciliation has no internal lock, so this handler serializes
	// imports per project the way the UI disables the import button.
	inflight sync.Map // projectID -> struct{}
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(svc services.ReconciliationService, projectRepo repositories.ProjectRepository, maxRows int, logger *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		svc:         svc,
		projectRepo: projectRepo,
		maxRows:     maxRows,
		logger:      logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ReconciliationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/projects/{pid}/equipment/import", h.Reimport)
}

// Reimport handles POST /api/projects/{pid}/equipment/import.
// The request body is the proposal CSV feed.
func (h *ReconciliationHandler) Reimport(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.PathValue("pid"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}

	if _, err := h.projectRepo.Get(r.Context(), projectID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "project_not_found", "no such project")
			return
		}
		h.logger.Error("Failed to load project", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to load project")
		return
	}

	if _, busy := h.inflight.LoadOrStore(projectID, struct{}{}); busy {
		_ = ErrorResponse(w, http.StatusConflict, "reimport_in_flight", "a reimport for this project is already running")
		return
	}
	defer h.inflight.Delete(projectID)

	rows, parseErrors, err := proposal.Parse(r.Body)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_proposal", err.Error())
		return
	}
	if len(rows) > h.maxRows {
		_ = ErrorResponse(w, http.StatusBadRequest, "proposal_too_large",
			fmt.Sprintf("proposal has %d rows, limit is %d", len(rows), h.maxRows))
		return
	}

	report, err := h.svc.Reimport(r.Context(), projectID, rows)
	if err != nil {
		if errors.Is(err, apperrors.ErrProjectEmptyAfterDelete) {
			h.logger.Error("Reimport failed after delete phase",
				zap.String("project_id", projectID.String()), zap.Error(err))
			_ = ErrorResponse(w, http.StatusInternalServerError, "reimport_failed",
				"reimport failed, project equipment may be inconsistent, retry required")
			return
		}
		h.logger.Error("Reimport failed",
			zap.String("project_id", projectID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "reimport_failed", err.Error())
		return
	}

	// Rows the parser rejected join rows the importer rejected, so the
	// operator sees every skipped line in one place.
	report.RowErrors = append(parseErrors, report.RowErrors...)

	if err := WriteJSON(w, http.StatusOK, ReimportResponse{
		Summary: report.Summary(),
		Report:  report,
	}); err != nil {
		h.logger.Error("Failed to encode reimport response", zap.Error(err))
	}
}
