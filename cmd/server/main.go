// Package main runs the ta3leemy platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ta3leemy/backend/config"
	"github.com/ta3leemy/backend/internal/auth"
	"github.com/ta3leemy/backend/internal/codes"
	"github.com/ta3leemy/backend/internal/content"
	"github.com/ta3leemy/backend/internal/enrollments"
	"github.com/ta3leemy/backend/internal/middleware"
	"github.com/ta3leemy/backend/internal/plans"
	"github.com/ta3leemy/backend/internal/redemption"
	"github.com/ta3leemy/backend/internal/reports"
	"github.com/ta3leemy/backend/internal/staff"
	"github.com/ta3leemy/backend/internal/students"
	"github.com/ta3leemy/backend/internal/teachers"
	"github.com/ta3leemy/backend/internal/worker"
	"github.com/ta3leemy/backend/pkg/database"
	"github.com/ta3leemy/backend/pkg/queue"
	"github.com/ta3leemy/backend/pkg/redis"
	"github.com/ta3leemy/backend/pkg/response"
	"github.com/ta3leemy/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MaterialsBucket:      cfg.AWS.MaterialsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Plans and teacher-student relationships
	planRepo := plans.NewRepository(pool)
	planSvc := plans.NewService(planRepo, rdb.Client, logger)
	planHandler := plans.NewHandler(planRepo)
	studentRepo := students.NewRepository(pool)
	studentHandler := students.NewHandler(studentRepo)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, studentRepo, planSvc, jwtService, logger)

	// Teacher profiles
	teacherRepo := teachers.NewRepository(pool)
	teacherHandler := teachers.NewHandler(teacherRepo, logger)

	// Content catalog
	contentRepo := content.NewRepository(pool)
	enrollRepo := enrollments.NewRepository(pool)
	contentHandler := content.NewHandler(contentRepo, enrollRepo, s3Client, logger)

	// Access codes and redemption
	codeRepo := codes.NewRepository(pool)
	codeHandler := codes.NewHandler(codeRepo, logger)
	redeemSvc := redemption.NewService(codeRepo, enrollRepo, studentRepo, planSvc, contentRepo, jobQueue, logger)
	redeemHandler := redemption.NewHandler(redeemSvc, logger)

	// Enrollments
	enrollHandler := enrollments.NewHandler(enrollRepo, studentRepo, planSvc, logger)

	// Staff
	staffRepo := staff.NewRepository(pool)
	staffHandler := staff.NewHandler(staffRepo, authRepo, planSvc, logger)

	// Reports
	reportHandler := reports.NewHandler(pool, logger)

	// Reconciliation worker runs in-process too; the dedicated binary exists
	// for deployments that want it separate.
	processor := worker.NewProcessor(jobQueue, enrollRepo, studentRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: platform storefront lookup
	router.GET("/platforms/:slug", teacherHandler.BySlug)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required). Staff tokens are resolved to their
	// employing teacher before any handler runs.
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	api.Use(staff.ActAsOwner(staffRepo, logger))
	{
		api.GET("/auth/me", authHandler.Me)

		// Plans
		api.GET("/plans", planHandler.List)
		api.PUT("/admin/plans/:key", middleware.RequireRole("admin"), planHandler.Upsert)
		api.PUT("/admin/teachers/:teacherId/plan", middleware.RequireRole("admin"), teacherHandler.SetPlan)

		// Teacher profile and roster
		api.GET("/teachers/me", middleware.RequireRole("teacher"), teacherHandler.Me)
		api.PUT("/teachers/me", middleware.RequireRole("teacher"), teacherHandler.Update)
		api.GET("/teachers/me/students", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_students"), studentHandler.ListMine)
		api.GET("/teachers/me/students/search", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_students"), studentHandler.Search)

		// Content catalog
		api.POST("/programs", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_content"), contentHandler.CreateProgram)
		api.GET("/programs", middleware.RequireRole("teacher", "staff"), contentHandler.ListPrograms)
		api.PUT("/programs/:programId", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_content"), contentHandler.UpdateProgram)
		api.POST("/programs/:programId/cover", middleware.RequireRole("teacher"), contentHandler.UploadCover)
		api.POST("/units", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_content"), contentHandler.CreateUnit)
		api.GET("/programs/:programId/units", contentHandler.ListUnits)
		api.POST("/lectures", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_content"), contentHandler.CreateLecture)
		api.GET("/units/:unitId/lectures", contentHandler.ListLectures)
		api.POST("/lectures/material-upload-url", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_content"), contentHandler.MaterialUploadURL)
		api.GET("/lectures/:lectureId/material", contentHandler.MaterialDownloadURL)

		// Access codes
		api.POST("/codes", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_codes"), codeHandler.Create)
		api.GET("/codes", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_codes"), codeHandler.List)
		api.GET("/codes/summary", middleware.RequireRole("teacher"), codeHandler.Summary)
		api.POST("/codes/redeem", middleware.RequireRole("student"), redeemHandler.Redeem)

		// Enrollments
		api.GET("/enrollments", middleware.RequireRole("student"), enrollHandler.ListMine)
		api.GET("/enrollments/:programId", middleware.RequireRole("student"), enrollHandler.GetProgram)
		api.GET("/enrollments/:programId/access", middleware.RequireRole("student"), enrollHandler.CheckAccess)
		api.POST("/enrollments/grant", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_students"), enrollHandler.Grant)
		api.GET("/enrollments/:programId/history", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("manage_students"), enrollHandler.HistoryByStudent)

		// Staff
		api.POST("/staff", middleware.RequireRole("teacher"), staffHandler.Invite)
		api.GET("/staff", middleware.RequireRole("teacher"), staffHandler.List)
		api.PUT("/staff/:staffId/permissions", middleware.RequireRole("teacher"), staffHandler.UpdatePermissions)
		api.PUT("/staff/:staffId/status", middleware.RequireRole("teacher"), staffHandler.SetStatus)

		// Reports
		api.GET("/reports/overview", middleware.RequireRole("teacher", "staff"), staff.RequirePermission("view_analytics"), reportHandler.TeacherOverview)
		api.GET("/reports/revenue", middleware.RequireRole("teacher"), reportHandler.RevenueByProgram)
		api.GET("/admin/reports/overview", middleware.RequireRole("admin"), reportHandler.AdminOverview)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
