package handler

import (
	"errors"
	"net/http"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TemplateHandler struct {
	templateRepo *repository.TaskTemplateRepository
	taskRepo     *repository.TaskRepository
	clk          clock.Clock
}

func NewTemplateHandler(
	templateRepo *repository.TaskTemplateRepository,
	taskRepo *repository.TaskRepository,
	clk clock.Clock,
) *TemplateHandler {
	return &TemplateHandler{templateRepo: templateRepo, taskRepo: taskRepo, clk: clk}
}

type TemplateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	RepeatType  string `json:"repeat_type"`
	IsActive    *bool  `json:"is_active"`
}

type TemplateResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	RepeatType  string `json:"repeat_type"`
	IsActive    bool   `json:"is_active"`
}

func templateResponse(t *model.TaskTemplate) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    t.Category,
		RepeatType:  t.RepeatType,
		IsActive:    t.IsActive,
	}
}

// Create registers a recurrence rule
// @Summary  Create a task template
// @Tags     Templates
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body TemplateRequest true "Template data"
// @Success  201 {object} TemplateResponse
// @Router   /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	template := &model.TaskTemplate{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.PriorityMedium,
		Category:    model.CategoryOther,
		RepeatType:  model.RepeatNone,
		IsActive:    true,
	}
	if !applyTemplateFields(c, template, &req) {
		return
	}

	if err := h.templateRepo.Create(c.Request.Context(), template); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, templateResponse(template))
}

// List returns all of the user's templates
// @Summary  List task templates
// @Tags     Templates
// @Security BearerAuth
// @Produce  json
// @Success  200 {array} TemplateResponse
// @Router   /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	templates, err := h.templateRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve templates"})
		return
	}

	responses := make([]TemplateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, templateResponse(&templates[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// Update edits a template
// @Summary  Update a task template
// @Tags     Templates
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Template ID"
// @Param    request body TemplateRequest true "Template data"
// @Success  200 {object} TemplateResponse
// @Router   /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}

	template := h.getOwnedTemplate(c, templateID, userID)
	if template == nil {
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	template.Title = req.Title
	template.Description = req.Description
	if !applyTemplateFields(c, template, &req) {
		return
	}

	if err := h.templateRepo.Update(c.Request.Context(), template); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}

	c.JSON(http.StatusOK, templateResponse(template))
}

// Delete removes a template. Tasks already generated from it stay.
// @Summary  Delete a task template
// @Tags     Templates
// @Security BearerAuth
// @Param    id path string true "Template ID"
// @Success  200
// @Router   /templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}

	template := h.getOwnedTemplate(c, templateID, userID)
	if template == nil {
		return
	}

	if err := h.templateRepo.Delete(c.Request.Context(), templateID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

// Generate creates a task from the template for today, on demand. The
// same duplicate guard as the rollover applies, so generating twice in
// one day is a no-op.
// @Summary  Generate a task from a template
// @Tags     Templates
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Template ID"
// @Success  201 {object} TaskResponse
// @Router   /templates/{id}/generate [post]
func (h *TemplateHandler) Generate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}

	template := h.getOwnedTemplate(c, templateID, userID)
	if template == nil {
		return
	}

	ctx := c.Request.Context()
	today := h.clk.Today()

	exists, err := h.taskRepo.ExistsActiveTitled(ctx, userID, template.Title, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Task already generated for today"})
		return
	}

	task := template.Instantiate(today)
	maxIndex, err := h.taskRepo.MaxOrderIndex(ctx, userID, task.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}
	task.OrderIndex = maxIndex + 1

	if err := h.taskRepo.Create(ctx, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, taskResponse(task))
}

func applyTemplateFields(c *gin.Context, template *model.TaskTemplate, req *TemplateRequest) bool {
	if req.Priority != "" {
		if !model.ValidPriority(req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return false
		}
		template.Priority = req.Priority
	}
	if req.Category != "" {
		if !model.ValidCategory(req.Category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return false
		}
		template.Category = req.Category
	}
	if req.RepeatType != "" {
		if !model.ValidRepeatType(req.RepeatType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid repeat type"})
			return false
		}
		template.RepeatType = req.RepeatType
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	return true
}

func (h *TemplateHandler) getOwnedTemplate(c *gin.Context, templateID, userID uuid.UUID) *model.TaskTemplate {
	template, err := h.templateRepo.GetByID(c.Request.Context(), templateID)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve template"})
		}
		return nil
	}
	if template.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil
	}
	return template
}
