package handler

import (
	"errors"
	"net/http"

	"planner/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo *repository.NotificationRepository
}

func NewNotificationHandler(repo *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List returns the user's notifications, newest first
// @Summary  List notifications
// @Tags     Notifications
// @Security BearerAuth
// @Produce  json
// @Success  200
// @Router   /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkRead marks one notification as read
// @Summary  Mark a notification read
// @Tags     Notifications
// @Security BearerAuth
// @Param    id path string true "Notification ID"
// @Success  200
// @Router   /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
