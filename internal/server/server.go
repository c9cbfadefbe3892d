package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planner/internal/clock"
	"planner/internal/config"
	"planner/internal/handler"
	"planner/internal/middleware"
	"planner/internal/repository"
	"planner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config

	backup *service.BackupService
}

func Init(cfg *config.Config) (*Server, error) {
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("❌ migrations failed: %w", err)
	}

	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Println("✅ Connected to database")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("❌ invalid timezone %q: %w", cfg.Timezone, err)
	}
	clk := clock.NewSystem(loc)

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	templateRepo := repository.NewTaskTemplateRepository(db)
	mindmapRepo := repository.NewMindmapRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	teamTaskRepo := repository.NewTeamTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	rolloverService := service.NewRolloverService(db, clk)
	performanceService := service.NewPerformanceService(db, clk)
	progressService := service.NewProgressService(db)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo)
	taskHandler := handler.NewTaskHandler(taskRepo, rolloverService, performanceService, progressService, clk)
	dashboardHandler := handler.NewDashboardHandler(taskRepo, rolloverService, performanceService, clk)
	templateHandler := handler.NewTemplateHandler(templateRepo, taskRepo, clk)
	mindmapHandler := handler.NewMindmapHandler(mindmapRepo, teamRepo, taskRepo, progressService)
	teamHandler := handler.NewTeamHandler(teamRepo, userRepo, notificationRepo)
	teamTaskHandler := handler.NewTeamTaskHandler(teamTaskRepo, teamRepo, mindmapRepo, taskRepo, notificationRepo, progressService, performanceService, clk)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Dashboard
		authorized.GET("/dashboard", dashboardHandler.Show)

		// Task routes
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks", taskHandler.List)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/toggle", taskHandler.Toggle)
		authorized.POST("/tasks/:id/move", taskHandler.Move)
		authorized.POST("/tasks/:id/reorder", taskHandler.Reorder)
		authorized.POST("/tasks/:id/tracking/start", taskHandler.StartTracking)
		authorized.POST("/tasks/:id/tracking/stop", taskHandler.StopTracking)

		// Template routes
		authorized.POST("/templates", templateHandler.Create)
		authorized.GET("/templates", templateHandler.List)
		authorized.PUT("/templates/:id", templateHandler.Update)
		authorized.DELETE("/templates/:id", templateHandler.Delete)
		authorized.POST("/templates/:id/generate", templateHandler.Generate)

		// Mindmap routes
		authorized.POST("/mindmaps", mindmapHandler.Create)
		authorized.GET("/mindmaps", mindmapHandler.List)
		authorized.GET("/mindmaps/:id", mindmapHandler.Show)
		authorized.GET("/mindmaps/:id/progress", mindmapHandler.Progress)
		authorized.POST("/mindmaps/:id/nodes", mindmapHandler.CreateNode)
		authorized.PUT("/nodes/:id", mindmapHandler.UpdateNode)
		authorized.DELETE("/nodes/:id", mindmapHandler.DeleteNode)
		authorized.POST("/nodes/:id/tasks", mindmapHandler.CreateCardTask)

		// Team routes
		authorized.POST("/teams", teamHandler.Create)
		authorized.GET("/teams", teamHandler.List)
		authorized.POST("/teams/:id/members", teamHandler.AddMember)
		authorized.GET("/teams/:id/members", teamHandler.ListMembers)

		// Team task routes
		authorized.POST("/nodes/:id/team-tasks", teamTaskHandler.Create)
		authorized.GET("/nodes/:id/team-tasks", teamTaskHandler.ListByNode)
		authorized.POST("/team-tasks/:id/toggle", teamTaskHandler.Toggle)

		// Notification routes
		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	s := &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
	}
	if cfg.BackupEnabled {
		s.backup = service.NewBackupService(cfg, loc)
	}
	return s, nil
}

func runMigrations(cfg *config.Config) error {
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(cfg.DBUser), url.QueryEscape(cfg.DBPassword),
		cfg.DBHost, cfg.DBPort, cfg.DBName,
	)
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Println("✅ Migrations applied")
	return nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	if s.backup != nil {
		if err := s.backup.Start(); err != nil {
			log.Fatalf("❌ Backup scheduler failed: %s\n", err)
		}
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	if s.backup != nil {
		s.backup.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}

	log.Println("✅ Server exited properly")
}
