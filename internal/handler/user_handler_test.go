package handler_test

import (
	"net/http"
	"testing"

	"planner/internal/handler"
	"planner/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func setupUserRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db := setupTestDB(t)
	userHandler := handler.NewUserHandler(repository.NewUserRepository(db))

	router := newTestRouter()
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)
	return router, db
}

func TestUserHandler_RegisterAndLogin(t *testing.T) {
	router, _ := setupUserRouter(t)

	resp := doJSON(t, router, "POST", "/register", gin.H{
		"email":    "Alice@Example.com",
		"name":     "Alice",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)
	// Emails are stored lowercased.
	assert.Contains(t, resp.Body.String(), "alice@example.com")

	resp = doJSON(t, router, "POST", "/login", gin.H{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "token")
}

func TestUserHandler_RegisterDuplicateEmail(t *testing.T) {
	router, _ := setupUserRouter(t)

	payload := gin.H{
		"email":    "bob@example.com",
		"name":     "Bob",
		"password": "secret123",
	}
	resp := doJSON(t, router, "POST", "/register", payload)
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, "POST", "/register", payload)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestUserHandler_RegisterInvalidInput(t *testing.T) {
	router, _ := setupUserRouter(t)

	resp := doJSON(t, router, "POST", "/register", gin.H{
		"email":    "not-an-email",
		"name":     "X",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUserHandler_LoginWrongPassword(t *testing.T) {
	router, _ := setupUserRouter(t)

	resp := doJSON(t, router, "POST", "/register", gin.H{
		"email":    "carol@example.com",
		"name":     "Carol",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, "POST", "/login", gin.H{
		"email":    "carol@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(t, router, "POST", "/login", gin.H{
		"email":    "nobody@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
