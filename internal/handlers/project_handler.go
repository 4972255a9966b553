package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/givehub/backend/internal/services/project"
	"github.com/givehub/backend/internal/services/verification"
	"github.com/google/uuid"
)

// ProjectHandler handles project-owner requests
type ProjectHandler struct {
	projects *project.Service
	forms    *verification.Service
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectSvc *project.Service, formSvc *verification.Service) *ProjectHandler {
	return &ProjectHandler{
		projects: projectSvc,
		forms:    formSvc,
	}
}

// CreateProject creates a new draft project for the authenticated user
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		Title         string `json:"title" binding:"required"`
		Description   string `json:"description"`
		WalletAddress string `json:"walletAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), project.CreateInput{
		Title:         input.Title,
		Description:   input.Description,
		WalletAddress: input.WalletAddress,
		OwnerID:       userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// AddUpdate publishes a progress update on a project
func (h *ProjectHandler) AddUpdate(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	var input struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.projects.AddUpdate(c.Request.Context(), projectID, userID, input.Title, input.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, update)
}

// CreateForm opens a verification form for a project
func (h *ProjectHandler) CreateForm(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project ID"})
		return
	}

	form, err := h.forms.Create(c.Request.Context(), projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, form)
}

// SaveFormStep stores the answers of one application step on a draft form
func (h *ProjectHandler) SaveFormStep(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form ID"})
		return
	}

	var input struct {
		Step          string                 `json:"step" binding:"required"`
		Answers       map[string]interface{} `json:"answers"`
		TermsAccepted bool                   `json:"termsAccepted"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := h.forms.SaveStep(c.Request.Context(), formID, verification.StepInput{
		Step:          input.Step,
		Answers:       input.Answers,
		TermsAccepted: input.TermsAccepted,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}

// SubmitForm submits a completed verification form for review
func (h *ProjectHandler) SubmitForm(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form ID"})
		return
	}

	form, err := h.forms.Submit(c.Request.Context(), formID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}
