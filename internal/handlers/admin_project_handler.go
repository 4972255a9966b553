package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/givehub/backend/internal/errs"
	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/internal/services/history"
	"github.com/givehub/backend/internal/services/lifecycle"
	"github.com/givehub/backend/internal/services/verification"
	"github.com/google/uuid"
)

// Bulk action names accepted by the admin console
const (
	ActionActivate    = "activate"
	ActionDeactivate  = "deactivate"
	ActionCancel      = "cancel"
	ActionVerify      = "verify"
	ActionUnverify    = "unverify"
	ActionRevokeBadge = "revokeBadge"
	ActionList        = "list"
	ActionUnlist      = "unlist"
)

// AdminProjectHandler handles admin console actions on projects
type AdminProjectHandler struct {
	lifecycle *lifecycle.Service
	forms     *verification.Service
	history   *history.Service
}

// NewAdminProjectHandler creates a new admin project handler
func NewAdminProjectHandler(lifecycleSvc *lifecycle.Service, formSvc *verification.Service, historySvc *history.Service) *AdminProjectHandler {
	return &AdminProjectHandler{
		lifecycle: lifecycleSvc,
		forms:     formSvc,
		history:   historySvc,
	}
}

// BulkActionRequest is the admin bulk action entry point payload
type BulkActionRequest struct {
	RecordIDs []string `json:"recordIds" binding:"required"`
	Action    string   `json:"action" binding:"required"`
	Params    struct {
		ReasonID *int `json:"reasonId"`
	} `json:"params"`
}

// BulkAction applies a lifecycle action to a batch of projects. A failing
// precheck aborts the whole operation before any mutation.
func (h *AdminProjectHandler) BulkAction(c *gin.Context) {
	var req BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "outcome": "failure"})
		return
	}

	ids, err := parseUUIDs(req.RecordIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid record id", "outcome": "failure"})
		return
	}

	actorID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized", "outcome": "failure"})
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case ActionActivate:
		err = h.lifecycle.ApplyStatusChange(ctx, ids, models.StatusActive, actorID, req.Params.ReasonID)
	case ActionDeactivate:
		err = h.lifecycle.ApplyStatusChange(ctx, ids, models.StatusDeactive, actorID, req.Params.ReasonID)
	case ActionCancel:
		err = h.lifecycle.ApplyStatusChange(ctx, ids, models.StatusCancelled, actorID, req.Params.ReasonID)
	case ActionVerify:
		err = h.lifecycle.ApplyVerification(ctx, ids, true, false, actorID)
	case ActionUnverify:
		err = h.lifecycle.ApplyVerification(ctx, ids, false, false, actorID)
	case ActionRevokeBadge:
		err = h.lifecycle.ApplyVerification(ctx, ids, false, true, actorID)
	case ActionList:
		err = h.lifecycle.ApplyListing(ctx, ids, models.ReviewStatusListed, &actorID)
	case ActionUnlist:
		err = h.lifecycle.ApplyListing(ctx, ids, models.ReviewStatusNotListed, &actorID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "unknown action: " + req.Action, "outcome": "failure"})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": req.Action + " applied", "outcome": "success"})
}

// GetHistory returns the audit trail of a project, oldest first
func (h *AdminProjectHandler) GetHistory(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	rows, err := h.history.ForProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// VerifyForm approves a single verification form
func (h *AdminProjectHandler) VerifyForm(c *gin.Context) {
	h.reviewForm(c, func(formID, adminID uuid.UUID) error {
		_, err := h.forms.Verify(c.Request.Context(), formID, adminID)
		return err
	})
}

// RejectForm declines a single verification form
func (h *AdminProjectHandler) RejectForm(c *gin.Context) {
	h.reviewForm(c, func(formID, adminID uuid.UUID) error {
		_, err := h.forms.Reject(c.Request.Context(), formID, adminID)
		return err
	})
}

// MakeDraftForm sends a form back to draft
func (h *AdminProjectHandler) MakeDraftForm(c *gin.Context) {
	h.reviewForm(c, func(formID, adminID uuid.UUID) error {
		_, err := h.forms.MakeDraft(c.Request.Context(), formID, &adminID)
		return err
	})
}

// BulkFormRequest is the payload for bulk form review
type BulkFormRequest struct {
	RecordIDs []string `json:"recordIds" binding:"required"`
	Approve   bool     `json:"approve"`
}

// BulkReviewForms verifies or rejects a batch of forms atomically
func (h *AdminProjectHandler) BulkReviewForms(c *gin.Context) {
	var req BulkFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "outcome": "failure"})
		return
	}

	ids, err := parseUUIDs(req.RecordIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid record id", "outcome": "failure"})
		return
	}

	adminID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized", "outcome": "failure"})
		return
	}

	if err := h.forms.BulkReview(c.Request.Context(), ids, adminID, req.Approve); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "forms reviewed", "outcome": "success"})
}

// reviewForm runs a single-form admin action with shared parsing and error
// mapping
func (h *AdminProjectHandler) reviewForm(c *gin.Context, fn func(formID, adminID uuid.UUID) error) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form ID"})
		return
	}

	adminID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := fn(formID, adminID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": "success"})
}

// respondError maps domain errors to HTTP responses
func respondError(c *gin.Context, err error) {
	switch {
	case errs.IsGuardViolation(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "outcome": "failure"})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error(), "outcome": "failure"})
	case errs.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "outcome": "failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error", "outcome": "failure"})
	}
}

// actingUser extracts the authenticated user's id from the request context
func actingUser(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// parseUUIDs parses a list of id strings
func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
