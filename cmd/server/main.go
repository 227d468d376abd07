package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jqzhao-umich/github-report/internal/handlers"
	"github.com/jqzhao-umich/github-report/internal/repositories"
	"github.com/jqzhao-umich/github-report/internal/services"
	"github.com/jqzhao-umich/github-report/pkg/config"
	"github.com/jqzhao-umich/github-report/pkg/database"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	gin.SetMode(cfg.Server.Mode)
	logger.Init()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Repositories
	reportRepo := repositories.NewReportRepository(database.DB)
	runRepo := repositories.NewRunRepository(database.DB)

	// Collection services
	githubService := services.NewGitHubService(cfg.GitHub.Token)
	iterationService := services.NewIterationService(cfg.GitHub.Token, cfg.Iteration)
	memberService := services.NewMemberService(githubService)
	commitService := services.NewCommitService(githubService)
	issueService := services.NewIssueService(githubService)
	prService := services.NewPullRequestService(githubService)
	reportService := services.NewReportService(githubService, iterationService, memberService,
		commitService, issueService, prService, runRepo)

	// Publishing services
	publisherService := services.NewPublisherService(cfg.Publish.ReportsDir, cfg.Publish.DocsDir, reportRepo)
	gitService := services.NewGitService(cfg.Publish.GitRepoPath, cfg.GitHub.Token)

	// Scheduler
	schedulerService := services.NewSchedulerService(cfg, reportService, publisherService, gitService)
	schedulerService.StartScheduler()
	defer schedulerService.Stop()

	// Handlers
	reportHandler := handlers.NewReportHandler(reportService, publisherService, reportRepo, runRepo,
		cfg.GitHub.OrgName, cfg.GitHub.ProjectName)
	healthHandler := handlers.NewHealthHandler()

	// Router
	router := gin.Default()
	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	{
		api.GET("/github-report", reportHandler.GetReport)
		api.POST("/reports/publish", reportHandler.PublishReport)
		api.GET("/reports", reportHandler.ListReports)
		api.GET("/runs", reportHandler.ListRuns)
	}

	// Serve published artifacts
	router.Static("/docs", cfg.Publish.DocsDir)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Errorf("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}
