package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TeamTaskHandler struct {
	teamTaskRepo     *repository.TeamTaskRepository
	teamRepo         *repository.TeamRepository
	mindmapRepo      *repository.MindmapRepository
	taskRepo         *repository.TaskRepository
	notificationRepo *repository.NotificationRepository
	progress         *service.ProgressService
	performance      *service.PerformanceService
	clk              clock.Clock
}

func NewTeamTaskHandler(
	teamTaskRepo *repository.TeamTaskRepository,
	teamRepo *repository.TeamRepository,
	mindmapRepo *repository.MindmapRepository,
	taskRepo *repository.TaskRepository,
	notificationRepo *repository.NotificationRepository,
	progress *service.ProgressService,
	performance *service.PerformanceService,
	clk clock.Clock,
) *TeamTaskHandler {
	return &TeamTaskHandler{
		teamTaskRepo:     teamTaskRepo,
		teamRepo:         teamRepo,
		mindmapRepo:      mindmapRepo,
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		progress:         progress,
		performance:      performance,
		clk:              clk,
	}
}

type TeamTaskRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	AssigneeIDs []string `json:"assignee_ids" binding:"required,min=1"`
}

type TeamTaskResponse struct {
	ID             string  `json:"id"`
	TeamID         string  `json:"team_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Completed      bool    `json:"completed"`
	CompletionRate int     `json:"completion_rate"`
	DueDate        *string `json:"due_date,omitempty"`
}

// Create creates a team task under a mindmap node. Every assignee gets a
// mirrored personal task in their today list and a notification.
// @Summary  Create a team task under a node
// @Tags     TeamTasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Node ID"
// @Param    request body TeamTaskRequest true "Team task data"
// @Success  201 {object} TeamTaskResponse
// @Router   /nodes/{id}/team-tasks [post]
func (h *TeamTaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	nodeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	node, err := h.mindmapRepo.GetNode(ctx, nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve node"})
		}
		return
	}
	mindmap, err := h.mindmapRepo.GetByID(ctx, node.MindmapID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve mindmap"})
		return
	}
	if mindmap.TeamID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Node is not on a team mindmap"})
		return
	}
	teamID := *mindmap.TeamID

	caller, err := h.teamRepo.GetMember(ctx, teamID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		return
	}
	if caller == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a team member"})
		return
	}

	var req TeamTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	assigneeIDs := make([]uuid.UUID, 0, len(req.AssigneeIDs))
	for _, raw := range req.AssigneeIDs {
		assigneeID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID"})
			return
		}
		member, err := h.teamRepo.GetMember(ctx, teamID, assigneeID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
			return
		}
		if member == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee is not a team member"})
			return
		}
		assigneeIDs = append(assigneeIDs, assigneeID)
	}

	teamTask := &model.TeamTask{
		TeamID:       teamID,
		ParentNodeID: &nodeID,
		Title:        req.Title,
		Description:  req.Description,
		CreatedBy:    userID,
	}
	if req.DueDate != "" {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due date"})
			return
		}
		teamTask.DueDate = &dueDate
	}

	if err := h.teamTaskRepo.Create(ctx, teamTask); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team task"})
		return
	}

	for _, assigneeID := range assigneeIDs {
		assignee := &model.TaskAssignee{TeamTaskID: teamTask.ID, UserID: assigneeID}
		if err := h.teamTaskRepo.AddAssignee(ctx, assignee); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign members"})
			return
		}

		// The mirrored personal task lands in the assignee's today list.
		maxIndex, err := h.taskRepo.MaxOrderIndex(ctx, assigneeID, model.CategoryToday)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign members"})
			return
		}
		personal := &model.Task{
			UserID:      assigneeID,
			Title:       req.Title,
			Description: req.Description,
			Category:    model.CategoryToday,
			Priority:    model.PriorityMedium,
			OrderIndex:  maxIndex + 1,
			TeamTaskID:  &teamTask.ID,
			EndDate:     teamTask.DueDate,
		}
		if err := h.taskRepo.Create(ctx, personal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign members"})
			return
		}

		notification := &model.Notification{
			UserID:  assigneeID,
			Message: fmt.Sprintf("You were assigned to %q", req.Title),
		}
		if err := h.notificationRepo.Create(ctx, notification); err != nil {
			log.Printf("⚠️  Notification create failed: %v", err)
		}
	}

	// A fresh task drags the node's rate down immediately.
	if _, err := h.progress.RecomputeTeamTaskCompletion(ctx, teamTask.ID); err != nil {
		log.Printf("⚠️  Team task progress update failed: %v", err)
	}

	c.JSON(http.StatusCreated, TeamTaskResponse{
		ID:          teamTask.ID.String(),
		TeamID:      teamTask.TeamID.String(),
		Title:       teamTask.Title,
		Description: teamTask.Description,
		DueDate:     formatDate(teamTask.DueDate),
	})
}

// ListByNode returns the team tasks attached to a node, with their
// assignee completion rates
// @Summary  List a node's team tasks
// @Tags     TeamTasks
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Node ID"
// @Success  200 {array} TeamTaskResponse
// @Router   /nodes/{id}/team-tasks [get]
func (h *TeamTaskHandler) ListByNode(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	nodeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	tasks, err := h.teamTaskRepo.ListByNode(ctx, nodeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team tasks"})
		return
	}

	responses := make([]TeamTaskResponse, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		rate := 0
		assignees, err := h.teamTaskRepo.ListAssignees(ctx, task.ID)
		if err == nil && len(assignees) > 0 {
			done := 0
			for _, a := range assignees {
				if a.Completed {
					done++
				}
			}
			rate = int(float64(done)/float64(len(assignees))*100 + 0.5)
		}
		responses = append(responses, TeamTaskResponse{
			ID:             task.ID.String(),
			TeamID:         task.TeamID.String(),
			Title:          task.Title,
			Description:    task.Description,
			Completed:      task.Completed,
			CompletionRate: rate,
			DueDate:        formatDate(task.DueDate),
		})
	}

	c.JSON(http.StatusOK, responses)
}

// Toggle flips the caller's completion on a team task. The mirrored
// personal task, the assignee row, the denormalized team-task state and
// the node progress chain all move together.
// @Summary  Toggle own completion on a team task
// @Tags     TeamTasks
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Team task ID"
// @Success  200 {object} TeamTaskResponse
// @Router   /team-tasks/{id}/toggle [post]
func (h *TeamTaskHandler) Toggle(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamTaskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	teamTask, err := h.teamTaskRepo.GetByID(ctx, teamTaskID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team task"})
		}
		return
	}

	assignee, err := h.teamTaskRepo.GetAssignee(ctx, teamTaskID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve assignee"})
		return
	}
	if assignee == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not an assignee"})
		return
	}

	now := h.clk.Now()
	completed := !assignee.Completed

	// The mirrored personal task may have been deleted by its owner.
	personal, err := h.taskRepo.GetByTeamTaskAndUser(ctx, teamTaskID, userID)
	if err != nil && !errors.Is(err, repository.ErrTaskNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}
	if personal != nil {
		personal.Completed = completed
		if completed {
			personal.CompletedAt = &now
			stopTracking(personal, now)
		} else {
			personal.CompletedAt = nil
		}
		if err := h.taskRepo.Update(ctx, personal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
			return
		}
	}

	assignee.Completed = completed
	if completed {
		assignee.CompletedAt = &now
	} else {
		assignee.CompletedAt = nil
	}
	if err := h.teamTaskRepo.UpdateAssignee(ctx, assignee); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update assignee"})
		return
	}

	rate, err := h.progress.RecomputeTeamTaskCompletion(ctx, teamTaskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress"})
		return
	}

	if _, err := h.performance.UpdateToday(ctx, userID); err != nil {
		log.Printf("⚠️  Performance update failed: %v", err)
	}

	refreshed, err := h.teamTaskRepo.GetByID(ctx, teamTaskID)
	if err != nil {
		refreshed = teamTask
	}

	c.JSON(http.StatusOK, TeamTaskResponse{
		ID:             refreshed.ID.String(),
		TeamID:         refreshed.TeamID.String(),
		Title:          refreshed.Title,
		Description:    refreshed.Description,
		Completed:      refreshed.Completed,
		CompletionRate: rate,
		DueDate:        formatDate(refreshed.DueDate),
	})
}
