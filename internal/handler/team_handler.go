package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"planner/internal/model"
	"planner/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TeamHandler struct {
	teamRepo         *repository.TeamRepository
	userRepo         *repository.UserRepository
	notificationRepo *repository.NotificationRepository
}

func NewTeamHandler(
	teamRepo *repository.TeamRepository,
	userRepo *repository.UserRepository,
	notificationRepo *repository.NotificationRepository,
) *TeamHandler {
	return &TeamHandler{
		teamRepo:         teamRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
	}
}

type TeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create creates a team. The creator becomes its owner and first admin
// member.
// @Summary  Create a team
// @Tags     Teams
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    request body TeamRequest true "Team data"
// @Success  201
// @Router   /teams [post]
func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	team := &model.Team{Name: req.Name, OwnerID: userID}
	if err := h.teamRepo.Create(ctx, team); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team"})
		return
	}

	member := &model.TeamMember{TeamID: team.ID, UserID: userID, IsAdmin: true}
	if err := h.teamRepo.AddMember(ctx, member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": team.ID, "name": team.Name})
}

// List returns the teams the user belongs to
// @Summary  List teams
// @Tags     Teams
// @Security BearerAuth
// @Produce  json
// @Success  200
// @Router   /teams [get]
func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	teams, err := h.teamRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve teams"})
		return
	}

	c.JSON(http.StatusOK, teams)
}

type AddMemberRequest struct {
	Email   string `json:"email" binding:"required,email"`
	IsAdmin bool   `json:"is_admin"`
}

// AddMember invites a user to the team by email. Only admins can add
// members; the new member gets a notification.
// @Summary  Add a team member
// @Tags     Teams
// @Security BearerAuth
// @Accept   json
// @Param    id path string true "Team ID"
// @Param    request body AddMemberRequest true "Member data"
// @Success  201
// @Router   /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	team, err := h.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		}
		return
	}

	caller, err := h.teamRepo.GetMember(ctx, teamID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		return
	}
	if caller == nil || !caller.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.userRepo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	existing, err := h.teamRepo.GetMember(ctx, teamID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already a member"})
		return
	}

	member := &model.TeamMember{TeamID: teamID, UserID: user.ID, IsAdmin: req.IsAdmin}
	if err := h.teamRepo.AddMember(ctx, member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	notification := &model.Notification{
		UserID:  user.ID,
		Message: fmt.Sprintf("You were added to team %q", team.Name),
	}
	if err := h.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("⚠️  Notification create failed: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{"team_id": teamID, "user_id": user.ID})
}

// ListMembers returns the team's member roster
// @Summary  List team members
// @Tags     Teams
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Team ID"
// @Success  200
// @Router   /teams/{id}/members [get]
func (h *TeamHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	caller, err := h.teamRepo.GetMember(ctx, teamID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team"})
		return
	}
	if caller == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a team member"})
		return
	}

	members, err := h.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve members"})
		return
	}

	type memberView struct {
		UserID  uuid.UUID `json:"user_id"`
		Name    string    `json:"name"`
		Email   string    `json:"email"`
		IsAdmin bool      `json:"is_admin"`
	}
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		view := memberView{UserID: m.UserID, IsAdmin: m.IsAdmin}
		if user, err := h.userRepo.GetByID(ctx, m.UserID); err == nil && user != nil {
			view.Name = user.Name
			view.Email = user.Email
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}
