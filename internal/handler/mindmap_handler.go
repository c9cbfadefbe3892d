package handler

import (
	"errors"
	"log"
	"net/http"

	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MindmapHandler struct {
	mindmapRepo *repository.MindmapRepository
	teamRepo    *repository.TeamRepository
	taskRepo    *repository.TaskRepository
	progress    *service.ProgressService
}

func NewMindmapHandler(
	mindmapRepo *repository.MindmapRepository,
	teamRepo *repository.TeamRepository,
	taskRepo *repository.TaskRepository,
	progress *service.ProgressService,
) *MindmapHandler {
	return &MindmapHandler{
		mindmapRepo: mindmapRepo,
		teamRepo:    teamRepo,
		taskRepo:    taskRepo,
		progress:    progress,
	}
}

type MindmapRequest struct {
	Title  string `json:"title" binding:"required"`
	TeamID string `json:"team_id"`
}

type NodeRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	PositionX   int    `json:"position_x"`
	PositionY   int    `json:"position_y"`
	Completed   *bool  `json:"completed"`
	DueDate     string `json:"due_date"`
}

type NodeResponse struct {
	ID          string  `json:"id"`
	MindmapID   string  `json:"mindmap_id"`
	ParentID    *string `json:"parent_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	PositionX   int     `json:"position_x"`
	PositionY   int     `json:"position_y"`
	Completed   bool    `json:"completed"`
	Progress    int     `json:"progress"`
	IsTask      bool    `json:"is_task"`
	TeamTaskID  *string `json:"team_task_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func nodeResponse(node *model.MindmapNode) NodeResponse {
	resp := NodeResponse{
		ID:          node.ID.String(),
		MindmapID:   node.MindmapID.String(),
		Title:       node.Title,
		Description: node.Description,
		PositionX:   node.PositionX,
		PositionY:   node.PositionY,
		Completed:   node.Completed,
		Progress:    node.Progress,
		IsTask:      node.IsTask,
		DueDate:     formatDate(node.DueDate),
	}
	if node.ParentID != nil {
		parent := node.ParentID.String()
		resp.ParentID = &parent
	}
	if node.TeamTaskID != nil {
		teamTask := node.TeamTaskID.String()
		resp.TeamTaskID = &teamTask
	}
	return resp
}

// Create creates a personal or team mindmap
// @Summary  Create a mindmap
// @Tags     Mindmaps
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body MindmapRequest true "Mindmap data"
// @Success  201
// @Router   /mindmaps [post]
func (h *MindmapHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req MindmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	mindmap := &model.Mindmap{Title: req.Title}
	if req.TeamID != "" {
		teamID, err := uuid.Parse(req.TeamID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
			return
		}
		member, err := h.teamRepo.GetMember(c.Request.Context(), teamID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
			return
		}
		if member == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a team member"})
			return
		}
		mindmap.TeamID = &teamID
	} else {
		mindmap.UserID = &userID
	}

	if err := h.mindmapRepo.Create(c.Request.Context(), mindmap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create mindmap"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": mindmap.ID, "title": mindmap.Title})
}

// List returns the user's personal mindmaps
// @Summary  List mindmaps
// @Tags     Mindmaps
// @Security BearerAuth
// @Produce  json
// @Success  200
// @Router   /mindmaps [get]
func (h *MindmapHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	mindmaps, err := h.mindmapRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve mindmaps"})
		return
	}

	c.JSON(http.StatusOK, mindmaps)
}

// Show returns a mindmap with all of its nodes
// @Summary  Get a mindmap with nodes
// @Tags     Mindmaps
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Mindmap ID"
// @Success  200
// @Router   /mindmaps/{id} [get]
func (h *MindmapHandler) Show(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	mindmapID, ok := pathID(c, "id")
	if !ok {
		return
	}

	mindmap := h.getAccessibleMindmap(c, mindmapID, userID)
	if mindmap == nil {
		return
	}

	nodes, err := h.mindmapRepo.ListNodes(c.Request.Context(), mindmapID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve nodes"})
		return
	}
	responses := make([]NodeResponse, 0, len(nodes))
	for i := range nodes {
		responses = append(responses, nodeResponse(&nodes[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    mindmap.ID,
		"title": mindmap.Title,
		"nodes": responses,
	})
}

// Progress returns the map-level progress: the mean of all leaf nodes
// @Summary  Overall mindmap progress
// @Tags     Mindmaps
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Mindmap ID"
// @Success  200
// @Router   /mindmaps/{id}/progress [get]
func (h *MindmapHandler) Progress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	mindmapID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if h.getAccessibleMindmap(c, mindmapID, userID) == nil {
		return
	}

	progress, err := h.progress.MindmapProgress(c.Request.Context(), mindmapID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// CreateNode adds a node to a mindmap
// @Summary  Create a mindmap node
// @Tags     Mindmaps
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Mindmap ID"
// @Param    request body NodeRequest true "Node data"
// @Success  201 {object} NodeResponse
// @Router   /mindmaps/{id}/nodes [post]
func (h *MindmapHandler) CreateNode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	mindmapID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if h.getAccessibleMindmap(c, mindmapID, userID) == nil {
		return
	}

	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	node := &model.MindmapNode{
		MindmapID:   mindmapID,
		Title:       req.Title,
		Description: req.Description,
		PositionX:   req.PositionX,
		PositionY:   req.PositionY,
	}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parent ID"})
			return
		}
		parent, err := h.mindmapRepo.GetNode(c.Request.Context(), parentID)
		if err != nil || parent.MindmapID != mindmapID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent node not in this mindmap"})
			return
		}
		node.ParentID = &parentID
	}
	if req.DueDate != "" {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due date"})
			return
		}
		node.DueDate = &dueDate
	}

	if err := h.mindmapRepo.CreateNode(c.Request.Context(), node); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create node"})
		return
	}

	c.JSON(http.StatusCreated, nodeResponse(node))
}

// UpdateNode edits a node. Marking a node completed pins its progress to
// 100 and ripples the change up the ancestor chain.
// @Summary  Update a mindmap node
// @Tags     Mindmaps
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Node ID"
// @Param    request body NodeRequest true "Node data"
// @Success  200 {object} NodeResponse
// @Router   /nodes/{id} [put]
func (h *MindmapHandler) UpdateNode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	nodeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	node := h.getAccessibleNode(c, nodeID, userID)
	if node == nil {
		return
	}

	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	node.Title = req.Title
	node.Description = req.Description
	node.PositionX = req.PositionX
	node.PositionY = req.PositionY
	if req.DueDate != "" {
		dueDate, err := parseDate(req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due date"})
			return
		}
		node.DueDate = &dueDate
	}
	if req.Completed != nil {
		node.Completed = *req.Completed
		if node.Completed {
			node.Progress = 100
		}
	}

	if err := h.mindmapRepo.UpdateNode(c.Request.Context(), node); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update node"})
		return
	}

	if _, err := h.progress.RecomputeNodeProgress(c.Request.Context(), node.ID); err != nil {
		log.Printf("⚠️  Node progress update failed: %v", err)
	}

	c.JSON(http.StatusOK, nodeResponse(node))
}

// DeleteNode removes a node and its entire subtree
// @Summary  Delete a mindmap node
// @Tags     Mindmaps
// @Security BearerAuth
// @Param    id path string true "Node ID"
// @Success  200
// @Router   /nodes/{id} [delete]
func (h *MindmapHandler) DeleteNode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	nodeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	node := h.getAccessibleNode(c, nodeID, userID)
	if node == nil {
		return
	}

	if err := h.mindmapRepo.DeleteNodeTree(c.Request.Context(), nodeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete node"})
		return
	}

	if node.ParentID != nil {
		if _, err := h.progress.RecomputeNodeProgress(c.Request.Context(), *node.ParentID); err != nil {
			log.Printf("⚠️  Node progress update failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Node deleted successfully"})
}

type CardTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
}

// CreateCardTask attaches a personal task to a node's task card. The task
// shows up in the owner's normal lists and its completion feeds the
// node's progress.
// @Summary  Add a task to a node's card
// @Tags     Mindmaps
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Node ID"
// @Param    request body CardTaskRequest true "Task data"
// @Success  201 {object} TaskResponse
// @Router   /nodes/{id}/tasks [post]
func (h *MindmapHandler) CreateCardTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	nodeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	node := h.getAccessibleNode(c, nodeID, userID)
	if node == nil {
		return
	}

	var req CardTaskRequest
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

	ctx := c.Request.Context()
	maxIndex, err := h.taskRepo.MaxOrderIndex(ctx, userID, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	task := &model.Task{
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       category,
		Priority:       priority,
		OrderIndex:     maxIndex + 1,
		TaskCardNodeID: &nodeID,
	}
	if err := h.taskRepo.Create(ctx, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	if !node.IsTask {
		node.IsTask = true
		if err := h.mindmapRepo.UpdateNode(ctx, node); err != nil {
			log.Printf("⚠️  Node update failed: %v", err)
		}
	}
	if _, err := h.progress.RecomputeNodeProgress(ctx, nodeID); err != nil {
		log.Printf("⚠️  Node progress update failed: %v", err)
	}

	c.JSON(http.StatusCreated, taskResponse(task))
}

// getAccessibleMindmap enforces mindmap access: the owner for personal
// maps, any member for team maps. Writes the error response itself.
func (h *MindmapHandler) getAccessibleMindmap(c *gin.Context, mindmapID, userID uuid.UUID) *model.Mindmap {
	mindmap, err := h.mindmapRepo.GetByID(c.Request.Context(), mindmapID)
	if err != nil {
		if errors.Is(err, repository.ErrMindmapNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Mindmap not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve mindmap"})
		}
		return nil
	}

	if mindmap.UserID != nil && *mindmap.UserID == userID {
		return mindmap
	}
	if mindmap.TeamID != nil {
		member, err := h.teamRepo.GetMember(c.Request.Context(), *mindmap.TeamID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
			return nil
		}
		if member != nil {
			return mindmap
		}
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	return nil
}

func (h *MindmapHandler) getAccessibleNode(c *gin.Context, nodeID, userID uuid.UUID) *model.MindmapNode {
	node, err := h.mindmapRepo.GetNode(c.Request.Context(), nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Node not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve node"})
		}
		return nil
	}
	if h.getAccessibleMindmap(c, node.MindmapID, userID) == nil {
		return nil
	}
	return node
}
