package handler

import (
	"log"
	"net/http"

	"planner/internal/clock"
	"planner/internal/model"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DashboardHandler struct {
	taskRepo    *repository.TaskRepository
	rollover    *service.RolloverService
	performance *service.PerformanceService
	clk         clock.Clock
}

func NewDashboardHandler(
	taskRepo *repository.TaskRepository,
	rollover *service.RolloverService,
	performance *service.PerformanceService,
	clk clock.Clock,
) *DashboardHandler {
	return &DashboardHandler{
		taskRepo:    taskRepo,
		rollover:    rollover,
		performance: performance,
		clk:         clk,
	}
}

type PerformanceDay struct {
	Date             string `json:"date"`
	TasksCompleted   int    `json:"tasks_completed"`
	TasksCreated     int    `json:"tasks_created"`
	CompletionRate   int    `json:"completion_rate"`
	StreakDays       int    `json:"streak_days"`
	TotalWorkSeconds int    `json:"total_work_seconds"`
}

type DashboardResponse struct {
	TodayTasks       []TaskResponse   `json:"today_tasks"`
	Performance      []PerformanceDay `json:"performance"`
	CompletionRate   int              `json:"completion_rate"`
	StreakDays       int              `json:"streak_days"`
	TotalWorkSeconds int              `json:"total_work_seconds"`
	PriorityCounts   map[string]int   `json:"priority_counts"`
	CategoryCounts   map[string]int   `json:"category_counts"`
}

// Show returns the dashboard view: today's tasks, the recent performance
// series and aggregate counters
// @Summary  Dashboard overview
// @Tags     Dashboard
// @Security BearerAuth
// @Produce  json
// @Success  200 {object} DashboardResponse
// @Router   /dashboard [get]
func (h *DashboardHandler) Show(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// The page load is the rollover trigger. Failures are logged and the
	// dashboard still renders from the current state.
	if _, err := h.rollover.Run(ctx, userID); err != nil {
		log.Printf("⚠️  Daily rollover failed: %v", err)
	}

	today, err := h.performance.UpdateToday(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update performance"})
		return
	}

	todayTasks, err := h.todayTasks(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	series, err := h.performance.ListRecent(ctx, userID, 7)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve performance"})
		return
	}
	days := make([]PerformanceDay, 0, len(series))
	for _, p := range series {
		days = append(days, PerformanceDay{
			Date:             p.Date.Format(dateLayout),
			TasksCompleted:   p.TasksCompleted,
			TasksCreated:     p.TasksCreated,
			CompletionRate:   p.CompletionRate,
			StreakDays:       p.StreakDays,
			TotalWorkSeconds: p.TotalWorkSeconds,
		})
	}

	priorityCounts, err := h.activeCounts(c, userID, "priority",
		[]string{model.PriorityLow, model.PriorityMedium, model.PriorityHigh})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}
	categoryCounts, err := h.activeCounts(c, userID, "category",
		[]string{model.CategoryToday, model.CategoryTomorrow, model.CategoryOther})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		TodayTasks:       todayTasks,
		Performance:      days,
		CompletionRate:   today.CompletionRate,
		StreakDays:       today.StreakDays,
		TotalWorkSeconds: today.TotalWorkSeconds,
		PriorityCounts:   priorityCounts,
		CategoryCounts:   categoryCounts,
	})
}

func (h *DashboardHandler) todayTasks(c *gin.Context, userID uuid.UUID) ([]TaskResponse, error) {
	tasks, err := h.taskRepo.ListByCategory(c.Request.Context(), userID, model.CategoryToday)
	if err != nil {
		return nil, err
	}
	today := h.clk.Today()
	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		if hideFromTodayView(&tasks[i], today, h.clk.Location()) {
			continue
		}
		responses = append(responses, taskResponse(&tasks[i]))
	}
	return responses, nil
}

func (h *DashboardHandler) activeCounts(c *gin.Context, userID uuid.UUID, column string, values []string) (map[string]int, error) {
	counts := make(map[string]int, len(values))
	for _, value := range values {
		n, err := h.taskRepo.CountActiveWhere(c.Request.Context(), userID, column, value)
		if err != nil {
			return nil, err
		}
		counts[value] = n
	}
	return counts, nil
}
