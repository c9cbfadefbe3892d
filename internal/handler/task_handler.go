package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	taskRepo    *repository.TaskRepository
	rollover    *service.RolloverService
	performance *service.PerformanceService
	progress    *service.ProgressService
	clk         clock.Clock
}

func NewTaskHandler(
	taskRepo *repository.TaskRepository,
	rollover *service.RolloverService,
	performance *service.PerformanceService,
	progress *service.ProgressService,
	clk clock.Clock,
) *TaskHandler {
	return &TaskHandler{
		taskRepo:    taskRepo,
		rollover:    rollover,
		performance: performance,
		progress:    progress,
		clk:         clk,
	}
}

type TaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Priority     string  `json:"priority"`
	Completed    bool    `json:"completed"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	StartDate    *string `json:"start_date,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
	OrderIndex   int     `json:"order_index"`
	IsTracking   bool    `json:"is_tracking"`
	TotalSeconds int     `json:"total_seconds"`
}

func taskResponse(task *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:           task.ID.String(),
		Title:        task.Title,
		Description:  task.Description,
		Category:     task.Category,
		Priority:     task.Priority,
		Completed:    task.Completed,
		StartDate:    formatDate(task.StartDate),
		EndDate:      formatDate(task.EndDate),
		OrderIndex:   task.OrderIndex,
		IsTracking:   task.IsTracking,
		TotalSeconds: task.TotalSeconds,
	}
	if task.CompletedAt != nil {
		completedAt := task.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completedAt
	}
	return resp
}

// Create creates a new task
// @Summary  Create a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body TaskRequest true "Task data"
// @Success  201 {object} TaskResponse
// @Router   /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	category := req.Category
	if category == "" {
		category = model.CategoryOther
	}
	if !model.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}

	task := &model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		Priority:    priority,
	}

	if req.StartDate != "" {
		startDate, err := parseDate(req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		task.StartDate = &startDate
	}
	if req.EndDate != "" {
		endDate, err := parseDate(req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		task.EndDate = &endDate
	}
	if task.StartDate != nil && task.EndDate == nil {
		task.EndDate = task.StartDate
	}

	maxIndex, err := h.taskRepo.MaxOrderIndex(c.Request.Context(), userID, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}
	task.OrderIndex = maxIndex + 1

	if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	if _, err := h.performance.UpdateToday(c.Request.Context(), userID); err != nil {
		log.Printf("⚠️  Performance update failed: %v", err)
	}

	c.JSON(http.StatusCreated, taskResponse(task))
}

// List returns the user's tasks grouped by category
// @Summary  List tasks by category
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Success  200
// @Router   /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Opportunistic rollover: a failure must never break the listing.
	if _, err := h.rollover.Run(c.Request.Context(), userID); err != nil {
		log.Printf("⚠️  Daily rollover failed: %v", err)
	}

	today := h.clk.Today()
	grouped := make(map[string][]TaskResponse, 3)
	for _, category := range []string{model.CategoryToday, model.CategoryTomorrow, model.CategoryOther} {
		tasks, err := h.taskRepo.ListByCategory(c.Request.Context(), userID, category)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
			return
		}
		responses := make([]TaskResponse, 0, len(tasks))
		for i := range tasks {
			if category == model.CategoryToday && hideFromTodayView(&tasks[i], today, h.clk.Location()) {
				continue
			}
			responses = append(responses, taskResponse(&tasks[i]))
		}
		grouped[category] = responses
	}

	c.JSON(http.StatusOK, grouped)
}

// hideFromTodayView filters completed tasks whose completion day already
// passed: they stay unarchived for two days but must not clutter today's
// list.
func hideFromTodayView(task *model.Task, today time.Time, loc *time.Location) bool {
	return task.Completed && task.CompletedAt != nil &&
		clock.Day(task.CompletedAt.In(loc)).Before(today)
}

// Update edits a task's fields
// @Summary  Update a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Task ID"
// @Param    request body TaskRequest true "Task data"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Priority != "" && !model.ValidPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}
	if req.Category != "" && !model.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.Category != "" {
		task.Category = req.Category
	}
	if req.StartDate != "" {
		startDate, err := parseDate(req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		task.StartDate = &startDate
	}
	if req.EndDate != "" {
		endDate, err := parseDate(req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		task.EndDate = &endDate
	}

	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

// Delete removes a task
// @Summary  Delete a task
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  200
// @Router   /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	if err := h.taskRepo.Delete(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// Toggle flips a task's completion state
// @Summary  Toggle task completion
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	now := h.clk.Now()
	task.Completed = !task.Completed
	if task.Completed {
		task.CompletedAt = &now
		stopTracking(task, now)
	} else {
		task.CompletedAt = nil
	}

	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	if _, err := h.performance.UpdateToday(c.Request.Context(), userID); err != nil {
		log.Printf("⚠️  Performance update failed: %v", err)
	}
	if task.TaskCardNodeID != nil {
		if _, err := h.progress.RecomputeNodeProgress(c.Request.Context(), *task.TaskCardNodeID); err != nil {
			log.Printf("⚠️  Node progress update failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

type TaskMoveRequest struct {
	Category string `json:"category" binding:"required"`
}

// Move reassigns a task's category directly, bypassing the rollover
// ladder
// @Summary  Move a task to another category
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Param    id path string true "Task ID"
// @Param    request body TaskMoveRequest true "Target category"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/move [post]
func (h *TaskHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	var req TaskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil || !model.ValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	maxIndex, err := h.taskRepo.MaxOrderIndex(c.Request.Context(), userID, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	task.Category = req.Category
	task.OrderIndex = maxIndex + 1
	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move task"})
		return
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

type TaskReorderRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// Reorder swaps a task with its neighbor in the manual ordering
// @Summary  Reorder a task within its category
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Param    id path string true "Task ID"
// @Param    request body TaskReorderRequest true "Direction"
// @Success  200
// @Router   /tasks/{id}/reorder [post]
func (h *TaskHandler) Reorder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	var req TaskReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid direction"})
		return
	}

	siblings, err := h.taskRepo.ListByCategory(c.Request.Context(), userID, task.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	current := -1
	for i := range siblings {
		if siblings[i].ID == task.ID {
			current = i
			break
		}
	}
	if current < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var neighbor *model.Task
	if req.Direction == "up" && current > 0 {
		neighbor = &siblings[current-1]
	} else if req.Direction == "down" && current < len(siblings)-1 {
		neighbor = &siblings[current+1]
	}
	if neighbor == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot move further"})
		return
	}

	task.OrderIndex, neighbor.OrderIndex = neighbor.OrderIndex, task.OrderIndex
	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder task"})
		return
	}
	if err := h.taskRepo.Update(c.Request.Context(), neighbor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StartTracking starts the task's stopwatch
// @Summary  Start time tracking
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/tracking/start [post]
func (h *TaskHandler) StartTracking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	if !task.IsTracking {
		now := h.clk.Now()
		task.IsTracking = true
		task.TrackingStartTime = &now
		if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start tracking"})
			return
		}
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

// StopTracking stops the stopwatch and folds the elapsed time into the
// task's total
// @Summary  Stop time tracking
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/tracking/stop [post]
func (h *TaskHandler) StopTracking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, _ := h.getOwnedTask(c, taskID, userID)
	if task == nil {
		return
	}

	if task.IsTracking {
		stopTracking(task, h.clk.Now())
		if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stop tracking"})
			return
		}
	}

	c.JSON(http.StatusOK, taskResponse(task))
}

// stopTracking folds the running stopwatch into total_seconds. No-op when
// the task is not tracking.
func stopTracking(task *model.Task, now time.Time) {
	if !task.IsTracking {
		return
	}
	if task.TrackingStartTime != nil {
		elapsed := now.Sub(*task.TrackingStartTime)
		if elapsed > 0 {
			task.TotalSeconds += int(elapsed.Seconds())
		}
	}
	task.IsTracking = false
	task.TrackingStartTime = nil
}

// getOwnedTask loads the task and enforces ownership. It writes the
// error response itself when it returns nil.
func (h *TaskHandler) getOwnedTask(c *gin.Context, taskID, userID uuid.UUID) (*model.Task, error) {
	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return nil, err
	}
	if task.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, repository.ErrTaskNotFound
	}
	return task, nil
}
