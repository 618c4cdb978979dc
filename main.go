package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filerepo/config"
	"filerepo/database"
	"filerepo/handlers"
	"filerepo/logger"
	"filerepo/middleware"
	"filerepo/models"
	"filerepo/repositories"
	"filerepo/services"
	"filerepo/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("filerepo stopped: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := os.Getenv("FILEREPO_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.Log.Level)
	defer logger.Sync()
	logger.Infof("starting filerepo service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.InitDB(&cfg.Database); err != nil {
		return err
	}
	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.File{},
		&models.ApprovalLog{},
		&models.FileAccessLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Infof("database migration completed")

	if err := database.InitRedis(ctx, &cfg.Redis); err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.PublicBaseURL, cfg.Storage.MaxFileSize)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}

	lockTTL := time.Duration(cfg.Lock.TTLSeconds) * time.Second
	repoContainer := repositories.NewGormRepositories(database.DB, database.RedisClient, lockTTL).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, store, cfg)
	handlers.SetServices(serviceContainer)

	if err := ensurePrincipal(ctx, serviceContainer.Auth); err != nil {
		return err
	}

	services.StartCleanupWorkers(ctx, time.Duration(cfg.Storage.TempCleanupInterval)*time.Second)

	if !logger.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if cfg.Storage.ServePublic {
		r.StaticFS("/storage", store.HTTPFileSystem())
	}
	setupRoutes(r, serviceContainer.Auth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Range"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "Content-Range"},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("server listening on http://%s", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// ensurePrincipal seeds the first principal account from FILEREPO_PRINCIPAL_*.
func ensurePrincipal(ctx context.Context, auth services.AuthService) error {
	email := strings.TrimSpace(os.Getenv("FILEREPO_PRINCIPAL_EMAIL"))
	if email == "" {
		return nil
	}
	name := strings.TrimSpace(os.Getenv("FILEREPO_PRINCIPAL_NAME"))
	if name == "" {
		name = "Principal"
	}
	user, err := auth.EnsurePrincipal(ctx, services.RegisterInput{
		FullName: name,
		Email:    email,
		Password: os.Getenv("FILEREPO_PRINCIPAL_PASSWORD"),
	})
	if err != nil {
		return fmt.Errorf("seed principal: %w", err)
	}
	logger.Infow("principal account ready", "user_id", user.ID, "email", user.Email)
	return nil
}

func setupRoutes(r *gin.Engine, auth middleware.Authenticator) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)
	api.POST("/register", handlers.Register)
	api.POST("/login", handlers.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(auth))
	{
		protected.POST("/logout", handlers.Logout)
		protected.GET("/me", handlers.GetProfile)

		protected.GET("/my-repository", handlers.GetMyRepository)

		protected.POST("/folders", handlers.CreateFolder)
		protected.POST("/folders/:id", handlers.UpdateFolder)
		protected.DELETE("/folders/:id", handlers.DeleteFolder)

		protected.POST("/files", handlers.UploadFile)
		protected.POST("/files/:id", handlers.RenameFile)
		protected.DELETE("/files/:id", handlers.DeleteFile)
		protected.GET("/files/:id/download", handlers.DownloadFile)
		protected.GET("/files/:id/preview", handlers.PreviewFile)
		protected.GET("/files/:id/thumbnail", handlers.GetThumbnail)
	}

	principal := protected.Group("")
	principal.Use(middleware.RequirePrincipal())
	{
		principal.GET("/all-repositories", handlers.GetAllRepositories)
		principal.GET("/principal/pending-users", handlers.ListPendingUsers)
		principal.POST("/principal/users/:id/approve", handlers.ApproveUser)
		principal.POST("/principal/users/:id/reject", handlers.RejectUser)
	}
}
