package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Julius266/proyecto-final/api/swagger"
	"github.com/Julius266/proyecto-final/internal/handler"
	"github.com/Julius266/proyecto-final/internal/middleware"
	"github.com/Julius266/proyecto-final/internal/models"
	"github.com/Julius266/proyecto-final/internal/repository"
	"github.com/Julius266/proyecto-final/internal/service"
	"github.com/Julius266/proyecto-final/pkg/cache"
	"github.com/Julius266/proyecto-final/pkg/config"
	"github.com/Julius266/proyecto-final/pkg/database"
	appErrors "github.com/Julius266/proyecto-final/pkg/errors"
	"github.com/Julius266/proyecto-final/pkg/export"
	"github.com/Julius266/proyecto-final/pkg/logger"
	corsmiddleware "github.com/Julius266/proyecto-final/pkg/middleware/cors"
	reqidmiddleware "github.com/Julius266/proyecto-final/pkg/middleware/requestid"
	"github.com/Julius266/proyecto-final/pkg/response"
	"github.com/Julius266/proyecto-final/pkg/storage"
)

// @title Trazio API
// @version 1.0.0
// @description Academic social tracking platform
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	store, err := storage.NewLocalStore(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	curriculumSvc := service.NewCurriculumService(curriculumRepo, logr)
	onboardingSvc := service.NewOnboardingService(userRepo, curriculumRepo, enrollmentRepo, validate, logr)
	profileSvc := service.NewProfileService(userRepo, profileRepo, enrollmentRepo, curriculumRepo, store, export.NewPDFExporter(), validate, logr)
	artifactSvc := service.NewArtifactService(artifactRepo, curriculumRepo, store, validate, logr)
	feedSvc := service.NewFeedService(postRepo, artifactRepo, curriculumRepo, socialRepo, cacheRepo, metricsSvc, validate, logr, service.FeedConfig{
		PopularHashtagLimit: cfg.Feed.PopularHashtagLimit,
		PopularCacheTTL:     cfg.Feed.PopularCacheTTL,
	})
	socialSvc := service.NewSocialService(socialRepo, postRepo, validate, logr)

	if cfg.Catalog.SeedOnStartup {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := curriculumSvc.EnsureSeeded(ctx); err != nil {
			logr.Fatal("failed to seed curriculum catalog", zap.Error(err))
		}
		cancel()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	curriculumHandler := handler.NewCurriculumHandler(curriculumSvc)
	onboardingHandler := handler.NewOnboardingHandler(onboardingSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	examHandler := handler.NewArtifactHandler(artifactSvc, models.ArtifactExam)
	assignmentHandler := handler.NewArtifactHandler(artifactSvc, models.ArtifactAssignment)
	projectHandler := handler.NewArtifactHandler(artifactSvc, models.ArtifactProject)
	postHandler := handler.NewPostHandler(feedSvc)
	socialHandler := handler.NewSocialHandler(socialSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusServiceUnavailable, "database unavailable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.Static(cfg.Storage.PublicBaseURL, cfg.Storage.BaseDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/curricula", curriculumHandler.List)
		authed.GET("/curricula/:id/subjects", curriculumHandler.ListSubjects)
		authed.GET("/subjects/:id", curriculumHandler.GetSubject)

		authed.POST("/onboarding/student", onboardingHandler.CompleteStudent)
		authed.POST("/onboarding/teacher", onboardingHandler.CompleteTeacher)
		authed.GET("/teachers", onboardingHandler.ListTeachers)
		authed.GET("/enrollments", onboardingHandler.ListMyEnrollments)
		authed.POST("/enrollments", middleware.RequireRoles(models.RoleStudent), onboardingHandler.AddEnrollments)
		authed.GET("/teaching/subjects", middleware.RequireRoles(models.RoleTeacher), onboardingHandler.ListTaughtSubjects)
		authed.GET("/teaching/subjects/:id/students", middleware.RequireRoles(models.RoleTeacher), onboardingHandler.ListSubjectRoster)

		authed.GET("/profile/me", profileHandler.GetMe)
		authed.GET("/profile/:id", profileHandler.GetPublic)
		authed.PUT("/profile/student", middleware.RequireRoles(models.RoleStudent), profileHandler.UpdateStudent)
		authed.PUT("/profile/teacher", middleware.RequireRoles(models.RoleTeacher), profileHandler.UpdateTeacher)
		authed.POST("/profile/student/transition", middleware.RequireRoles(models.RoleStudent), profileHandler.TransitionSemester)
		authed.GET("/profile/student/history", middleware.RequireRoles(models.RoleStudent), profileHandler.GetHistory)
		authed.GET("/profile/student/history/export", middleware.RequireRoles(models.RoleStudent), profileHandler.ExportHistory)
		authed.POST("/profile/image", profileHandler.UploadImage)
		authed.DELETE("/profile", profileHandler.DeleteAccount)
		authed.DELETE("/users/:id", middleware.RequireRoles(models.RoleAdmin), profileHandler.DeleteUser)

		registerArtifactRoutes(authed.Group("/exams"), examHandler)
		registerArtifactRoutes(authed.Group("/assignments"), assignmentHandler)
		registerArtifactRoutes(authed.Group("/projects"), projectHandler)

		authed.POST("/posts", postHandler.Create)
		authed.GET("/posts", postHandler.List)
		authed.GET("/posts/:id", postHandler.Get)
		authed.DELETE("/posts/:id", postHandler.Delete)
		authed.GET("/hashtags", postHandler.ListHashtags)
		authed.GET("/hashtags/popular", postHandler.PopularHashtags)

		authed.POST("/posts/:id/likes", socialHandler.Like)
		authed.DELETE("/posts/:id/likes", socialHandler.Unlike)
		authed.GET("/posts/:id/likes", socialHandler.ListLikes)
		authed.POST("/posts/:id/comments", socialHandler.AddComment)
		authed.GET("/posts/:id/comments", socialHandler.ListComments)
		authed.DELETE("/comments/:commentId", socialHandler.DeleteComment)
		authed.POST("/posts/:id/highlights", middleware.RequireRoles(models.RoleTeacher), socialHandler.Highlight)
		authed.DELETE("/posts/:id/highlights", middleware.RequireRoles(models.RoleTeacher), socialHandler.Unhighlight)
		authed.GET("/posts/:id/highlights", socialHandler.ListHighlights)
		authed.GET("/highlights/mine", middleware.RequireRoles(models.RoleTeacher), socialHandler.ListMyHighlights)

		authed.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerArtifactRoutes(g *gin.RouterGroup, h *handler.ArtifactHandler) {
	g.POST("", h.Create)
	g.GET("", h.ListMine)
	g.GET("/user/:userId", h.ListByUser)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/attachments", h.AddAttachment)
	g.DELETE("/:id/attachments/:storageId", h.RemoveAttachment)
}
