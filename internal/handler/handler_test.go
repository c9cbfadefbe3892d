package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"planner/internal/clock"
	"planner/internal/middleware"
	"planner/internal/model"
	"planner/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.TaskTemplate{},
		&model.UserPerformance{},
		&model.Team{},
		&model.TeamMember{},
		&model.Mindmap{},
		&model.MindmapNode{},
		&model.TeamTask{},
		&model.TaskAssignee{},
		&model.Notification{},
	))

	return db
}

var testClockStart = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestClock() *clock.Fixed {
	return clock.NewFixed(testClockStart)
}

func createTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := &model.User{
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: "hashed",
		Name:           "Test User",
	}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))
	return user.ID
}

// authAs short-circuits the JWT middleware, injecting the user directly.
func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
