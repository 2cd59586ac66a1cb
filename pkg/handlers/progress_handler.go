package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitewire-io/sitewire-engine/pkg/apperrors"
	"github.com/sitewire-io/sitewire-engine/pkg/models"
	"github.com/sitewire-io/sitewire-engine/pkg/repositories"
	"github.com/sitewire-io/sitewire-engine/pkg/services"
)

// ProgressResponse is the dashboard progress payload for one project.
type ProgressResponse struct {
	ProjectID  uuid.UUID                        `json:"project_id"`
	ComputedAt time.Time                        `json:"computed_at"`
	Milestones models.MilestonePercentageBundle `json:"milestones"`
}

// ProgressHandler exposes the milestone rollup read path.
type ProgressHandler struct {
	cache       *services.ProgressCache
	projectRepo repositories.ProjectRepository
	logger      *zap.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(cache *services.ProgressCache, projectRepo repositories.ProjectRepository, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{cache: cache, projectRepo: projectRepo, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ProgressHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects/{pid}/progress", h.Progress)
}

// Progress handles GET /api/projects/{pid}/progress. Cached bundles are
// served immediately, stale ones while a background recompute runs.
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
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

	entry, err := h.cache.GetOrCompute(r.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to compute progress",
			zap.String("project_id", projectID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "calculation_failed", "failed to compute progress")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ProgressResponse{
		ProjectID:  entry.ProjectID,
		ComputedAt: entry.ComputedAt,
		Milestones: entry.Bundle,
	}); err != nil {
		h.logger.Error("Failed to encode progress response", zap.Error(err))
	}
}
